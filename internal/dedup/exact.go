package dedup

import (
	"bytes"
	"crypto/sha256"
	"io"
	"os"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
)

// exactStrategy compares SHA-256 digests of the raw frame files. It never
// decodes pixels and only matches byte-identical frames.
type exactStrategy struct{}

func (exactStrategy) Kind() Kind         { return KindExact }
func (exactStrategy) Threshold() float64 { return 0 }

func (exactStrategy) Fingerprint(frame entity.Frame) (Fingerprint, error) {
	f, err := os.Open(frame.Path)
	if err != nil {
		return Fingerprint{}, &entity.FingerprintError{Path: frame.Path, Err: err}
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Fingerprint{}, &entity.FingerprintError{Path: frame.Path, Err: err}
	}
	return Fingerprint{Kind: KindExact, Digest: h.Sum(nil)}, nil
}

func (exactStrategy) Compare(a, b Fingerprint) (Verdict, error) {
	if err := checkKinds(KindExact, a, b); err != nil {
		return Verdict{}, err
	}
	if bytes.Equal(a.Digest, b.Digest) {
		return Verdict{Score: 1, Duplicate: true}, nil
	}
	return Verdict{Score: 0}, nil
}
