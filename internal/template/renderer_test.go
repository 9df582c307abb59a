package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template Template
		context  map[string]string
		want     Rendered
	}{
		{
			name: "literal round trip",
			template: Template{
				Name:    "greeting",
				Subject: "Hello",
				Body:    "Hi {{name}}, thanks!",
			},
			context: map[string]string{"name": "Ana"},
			want:    Rendered{Subject: "Hello", Body: "Hi Ana, thanks!"},
		},
		{
			name: "placeholder in subject and body",
			template: Template{
				Name:    "auto_reply",
				Subject: "Re: {{original_subject}}",
				Body:    "Your message about {{original_subject}} was received.",
			},
			context: map[string]string{"original_subject": "invoice 42"},
			want: Rendered{
				Subject: "Re: invoice 42",
				Body:    "Your message about invoice 42 was received.",
			},
		},
		{
			name: "whitespace inside braces",
			template: Template{
				Name:    "spaced",
				Subject: "Welcome to {{ company_name }}!",
				Body:    "Dear {{ name }},",
			},
			context: map[string]string{"company_name": "Acme", "name": "Ana"},
			want:    Rendered{Subject: "Welcome to Acme!", Body: "Dear Ana,"},
		},
		{
			name: "repeated placeholder",
			template: Template{
				Name: "repeat",
				Body: "{{name}} and {{name}} again",
			},
			context: map[string]string{"name": "Ana"},
			want:    Rendered{Body: "Ana and Ana again"},
		},
		{
			name: "no placeholders",
			template: Template{
				Name:    "static",
				Subject: "Ping",
				Body:    "literal {not a placeholder}",
			},
			context: nil,
			want:    Rendered{Subject: "Ping", Body: "literal {not a placeholder}"},
		},
		{
			name: "extra context keys are ignored",
			template: Template{
				Name: "greeting",
				Body: "Hi {{name}}",
			},
			context: map[string]string{"name": "Ana", "unused": "x"},
			want:    Rendered{Body: "Hi Ana"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, tt.context)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderMissingPlaceholder(t *testing.T) {
	tmpl := Template{
		Name:    "greeting",
		Subject: "Hello {{name}}",
		Body:    "Hi {{name}}, from {{sender_name}}",
	}

	_, err := Render(tmpl, map[string]string{"name": "Ana"})
	require.Error(t, err)

	var missing *MissingPlaceholderError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "sender_name", missing.Key)
	assert.Equal(t, "greeting", missing.Template)
	assert.Contains(t, err.Error(), "sender_name")
}

func TestRenderMissingPlaceholderNamesFirstInDocumentOrder(t *testing.T) {
	tmpl := Template{
		Name:    "order",
		Subject: "About {{first}}",
		Body:    "And {{second}}",
	}

	_, err := Render(tmpl, map[string]string{})
	var missing *MissingPlaceholderError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "first", missing.Key)
}

func TestPlaceholders(t *testing.T) {
	tmpl := Template{
		Name:    "meeting",
		Subject: "Meeting confirmed - {{meeting_title}}",
		Body:    "Hi {{attendee_name}}, {{meeting_title}} is on {{date}}.",
	}
	assert.Equal(t, []string{"meeting_title", "attendee_name", "date"}, Placeholders(tmpl))

	assert.Nil(t, Placeholders(Template{Name: "static", Body: "none"}))
}
