// Package license owns license records and the device-lock policy.
//
// The registry is the only component allowed to mutate a license record,
// and the only mutation it performs is appending a device fingerprint.
// It never removes devices, never extends expiry, and never deletes a
// record: expired licenses stay in the store so a renewal performed
// out-of-band can bring them back without re-provisioning devices.
package license
