package util

const (
	// MaskingThresholdShort is the length below which values are fully masked
	MaskingThresholdShort = 4
	// MaskingThresholdLong is the length below which values use short masking
	MaskingThresholdLong = 8
)

// MaskValue masks a value for logging (shows first 2 and last 2 characters).
// Used for access key IDs and other identifiers that are sensitive but
// useful to partially recognize in debug output.
func MaskValue(value string) string {
	if len(value) == 0 {
		return "<empty>"
	}
	if len(value) <= MaskingThresholdShort {
		return "***"
	}
	return value[:2] + "..." + value[len(value)-2:]
}

// MaskSecret fully masks a secret, only revealing whether it was set at all.
// Used for access key secrets, which must never appear in logs even partially.
func MaskSecret(value string) string {
	if len(value) == 0 {
		return "<empty>"
	}
	if len(value) <= MaskingThresholdLong {
		return "***"
	}
	return "********"
}
