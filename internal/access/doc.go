// Package access mediates caregiver control over the home.
//
// Caregivers carry a capability set (view, control, emergency) and a
// lifecycle status (pending, active, inactive). The Controller is the only
// path from a caregiver command to a device mutation: it checks status,
// interprets the command text, verifies the required capability, applies
// the change, stamps the caregiver's last access time, and appends an audit
// entry. Attempts that are denied or unrecognised leave every store
// untouched.
package access
