package platformcore

import (
	"fmt"
	"unicode/utf8"
)

// ValidateCaption enforces an adapter's caption_limit() contract
// ahead of scheduling, so a too-long caption fails VALIDATION locally
// instead of surfacing as a platform-side rejection later.
func ValidateCaption(a Adapter, caption string) error {
	limit := a.Capabilities().MaxCaptionLength
	if n := utf8.RuneCountInString(caption); n > limit {
		return New(KindValidation, fmt.Sprintf("caption exceeds %s limit of %d characters (got %d)", a.Platform(), limit, n))
	}
	return nil
}

// ValidateMedia enforces an adapter's declared size constraint before
// an upload begins. Only the size is checked; container and codec are
// not validated here or in the adapters' Publish.
func ValidateMedia(a Adapter, media MediaRef) error {
	maxBytes := int64(a.Capabilities().MaxMediaCountMB) * 1024 * 1024
	if maxBytes > 0 && media.SizeBytes > maxBytes {
		return New(KindMediaUnsupported, fmt.Sprintf("%s media exceeds max size of %d MB", a.Platform(), a.Capabilities().MaxMediaCountMB))
	}
	return nil
}
