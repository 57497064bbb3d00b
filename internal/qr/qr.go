// Package qr encodes certificate bundles for QR transport and decodes them
// back for offline verification. The pipeline is JSON, zlib, base45, with a
// version prefix so future schema changes can coexist with deployed scanners.
package qr

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/minvws/base45-go/base45"

	dErrors "petcert/pkg/domain-errors"
)

// Prefix marks version 1 of the QR encoding.
const Prefix = "PC1:"

// Bundle is everything a verifier needs without calling back into the
// service: the canonical payload, its digest and both signatures.
type Bundle struct {
	Payload               string `json:"payload"`
	Digest                string `json:"digest"`
	PractitionerSignature string `json:"practitioner_signature"`
	OrganizationSignature string `json:"organization_signature"`
}

// Encode serializes, compresses and base45-encodes the bundle.
func Encode(bundle Bundle) (string, error) {
	serialized, err := json.Marshal(bundle)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "serialize qr bundle")
	}

	var compressed bytes.Buffer
	writer := zlib.NewWriter(&compressed)
	if _, err := writer.Write(serialized); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "compress qr bundle")
	}
	if err := writer.Close(); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "compress qr bundle")
	}

	encoded, err := base45.Base45Encode(compressed.Bytes())
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "encode qr bundle")
	}
	return Prefix + string(encoded), nil
}

// Decode reverses Encode. Any defect in the input, wrong prefix, corrupt
// base45, truncated compression stream or malformed JSON, surfaces as a qr
// decode error.
func Decode(data string) (*Bundle, error) {
	if !strings.HasPrefix(data, Prefix) {
		return nil, dErrors.New(dErrors.CodeQrDecode, "missing or unsupported qr prefix")
	}

	compressed, err := base45.Base45Decode([]byte(strings.TrimPrefix(data, Prefix)))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeQrDecode, "invalid base45 encoding")
	}

	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeQrDecode, "invalid compression stream")
	}
	defer reader.Close()

	serialized, err := io.ReadAll(reader)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeQrDecode, "truncated compression stream")
	}

	var bundle Bundle
	if err := json.Unmarshal(serialized, &bundle); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeQrDecode, "malformed qr bundle")
	}
	return &bundle, nil
}
