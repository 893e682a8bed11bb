package utils

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// The canonical transform behind demo image hashing. Changing either constant
// invalidates every stored mapping, which is why the version tag is baked
// into the key: v2 hashes can coexist with v1 entries after a migration
// instead of silently missing all of them.
const (
	HashVersion = "v1"
	hashEdgePx  = 256
)

// CanonicalImageHash computes the content key for the demo mapping table:
// resize to a fixed square, collapse to grayscale, MD5 the raw pixel bytes.
// The result is prefixed with the hash scheme version.
func CanonicalImageHash(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", NewInputError("cannot decode image: %v", err)
	}

	resized := imaging.Resize(img, hashEdgePx, hashEdgePx, imaging.Lanczos)
	gray := imaging.Grayscale(resized)

	// Grayscale NRGBA carries R=G=B; hash the single channel so the key only
	// depends on luminance.
	pix := make([]byte, 0, hashEdgePx*hashEdgePx)
	for i := 0; i < len(gray.Pix); i += 4 {
		pix = append(pix, gray.Pix[i])
	}

	sum := md5.Sum(pix)
	return HashVersion + ":" + hex.EncodeToString(sum[:]), nil
}
