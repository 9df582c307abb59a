// Package template renders named subject/body email templates with
// {{placeholder}} substitution.
//
// Rendering is strict: a placeholder with no value in the context fails with
// a *MissingPlaceholderError naming the key, and no partially substituted
// output is returned.
package template
