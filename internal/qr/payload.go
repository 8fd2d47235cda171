// Package qr builds the payload encoded into a form's QR code. Rendering the
// payload into an image is left to the client.
package qr

import "strings"

// Payload returns the respondent URL for a form: {baseURL}/feedback/{formID}.
// The form ID is interpolated verbatim; a wrong or unknown ID simply produces
// a URL that resolves to the not-found state.
func Payload(formID, baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + "/feedback/" + formID
}
