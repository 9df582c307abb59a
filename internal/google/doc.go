// Package google provides OAuth2 authentication and token persistence for
// the Gmail API.
//
// Tokens are cached per account as JSON files under the user cache
// directory. The token source returned by GetTokenSource refreshes expired
// access tokens transparently and writes the refreshed token back to disk,
// so a successful run leaves a usable credential behind. A refresh that
// fails because the stored credential is revoked or expired surfaces as an
// *AuthError, which is fatal for the run.
package google
