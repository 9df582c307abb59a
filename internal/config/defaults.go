package config

// Default returns the built-in configuration used when no config file
// exists: a starter rule set and the stock reply templates.
func Default() *Config {
	return &Config{
		Query:          "in:inbox",
		MaxResults:     10,
		AttachmentsDir: "attachments",
		Rules: []RuleConfig{
			{
				Name:          "Work",
				Keywords:      []string{"meeting", "project", "deadline", "invoice", "urgent"},
				SenderDomains: []string{"company.com", "work.com", "enterprise.com"},
			},
			{
				Name:     "Personal",
				Keywords: []string{"family", "friend", "birthday", "dinner", "vacation"},
			},
			{
				Name:           "Newsletters",
				Keywords:       []string{"unsubscribe", "newsletter", "weekly digest"},
				SubjectPattern: `newsletter|digest|updates?`,
			},
			{
				Name:           "Promotions",
				Keywords:       []string{"sale", "discount", "offer", "deal", "promo"},
				SubjectPattern: `\d+%\s*off|\bsale\b|\bdiscount\b`,
			},
			{
				Name:     "Important",
				Keywords: []string{"important", "critical", "action required", "asap"},
			},
		},
		Templates: map[string]TemplateConfig{
			"auto_reply": {
				Subject: "Re: {{original_subject}}",
				Body: "Hi,\n\n" +
					"Thank you for your email. This is an automated response to confirm\n" +
					"that your message has been received. I will respond as soon as possible.\n\n" +
					"Best regards,\n{{sender_name}}\n",
			},
			"welcome": {
				Subject: "Welcome!",
				Body: "Hi {{sender}},\n\n" +
					"Thanks for getting in touch. We're glad to hear from you.\n\n" +
					"Best regards,\n{{sender_name}}\n",
			},
			"thank_you": {
				Subject: "Thank You!",
				Body: "Dear {{sender}},\n\n" +
					"We truly appreciate your message about {{original_subject}}.\n\n" +
					"Warm regards,\n{{sender_name}}\n",
			},
			"meeting": {
				Subject: "Meeting Confirmed - {{meeting_title}}",
				Body: "Hi {{attendee_name}},\n\n" +
					"Your meeting has been confirmed!\n\n" +
					"  {{meeting_title}}\n" +
					"  Date: {{date}}\n" +
					"  Time: {{time}}\n" +
					"  Location: {{location}}\n\n" +
					"Looking forward to seeing you there!\n\n" +
					"Best regards,\n{{sender_name}}\n",
			},
		},
		Reply: ReplyConfig{
			SenderName: "Inbox Pilot",
		},
	}
}
