// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package biometric

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// KeyFormat tags which input shape a public key was decoded from, so callers
// and tests can assert which decode path ran.
type KeyFormat int

// Recognized key input shapes.
const (
	// FormatUnknown means the key has not been decoded.
	FormatUnknown KeyFormat = iota

	// FormatRawPoint is a 65-byte uncompressed P-256 point (0x04 || X || Y).
	FormatRawPoint

	// FormatCOSE is a CBOR-encoded COSE EC2 key map.
	FormatCOSE

	// FormatSPKI is a 91-byte SubjectPublicKeyInfo DER structure, the
	// canonical storage form.
	FormatSPKI
)

// String returns the format name.
func (f KeyFormat) String() string {
	switch f {
	case FormatRawPoint:
		return "raw-point"
	case FormatCOSE:
		return "cose-ec2"
	case FormatSPKI:
		return "spki"
	default:
		return "unknown"
	}
}

const (
	// coordinateSize is the byte length of a P-256 field element.
	coordinateSize = 32

	// rawPointSize is the length of an uncompressed point: 0x04 || X || Y.
	rawPointSize = 1 + 2*coordinateSize

	// spkiPrefixSize is the length of the fixed DER header in spkiPrefix.
	spkiPrefixSize = 26

	// spkiSize is the length of a P-256 SPKI DER value.
	spkiSize = spkiPrefixSize + rawPointSize
)

// spkiPrefix is the fixed ASN.1 DER header for a P-256 SPKI structure:
// SEQUENCE{ SEQUENCE{ OID ecPublicKey, OID prime256v1 }, BIT STRING } with the
// uncompressed point as the bit string body.
var spkiPrefix = []byte{
	0x30, 0x59, // SEQUENCE, 89 bytes
	0x30, 0x13, // SEQUENCE, 19 bytes
	0x06, 0x07, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x02, 0x01, // OID 1.2.840.10045.2.1 (ecPublicKey)
	0x06, 0x08, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x03, 0x01, 0x07, // OID 1.2.840.10045.3.1.7 (prime256v1)
	0x03, 0x42, 0x00, // BIT STRING, 66 bytes, no unused bits
}

// COSE constants for an ES256 EC2 key.
const (
	coseKeyTypeEC2 = 2
	coseCurveP256  = 1
	coseAlgES256   = -7
)

// coseEC2Key is the subset of a COSE_Key map this package accepts. Labels are
// the integer keys assigned by RFC 9053.
type coseEC2Key struct {
	KeyType   int    `cbor:"1,keyasint"`
	Algorithm int    `cbor:"3,keyasint,omitempty"`
	Curve     int    `cbor:"-1,keyasint,omitempty"`
	X         []byte `cbor:"-2,keyasint,omitempty"`
	Y         []byte `cbor:"-3,keyasint,omitempty"`
}

// PublicKey is a decoded P-256 public key with fixed-width coordinates.
type PublicKey struct {
	// X and Y are the curve point coordinates as 32-byte big-endian
	// unsigned integers, left-padded, never truncated.
	X [coordinateSize]byte
	Y [coordinateSize]byte

	// Format records which input shape the key was decoded from.
	Format KeyFormat
}

// DecodePublicKey converts authenticator-supplied key bytes into a PublicKey.
// A CBOR/COSE parse is attempted first; on structural CBOR failure the bytes
// are interpreted as a raw uncompressed point. A payload that parses as CBOR
// but carries the wrong key type, curve, or coordinates is rejected outright
// rather than falling through, so a malformed COSE key cannot masquerade as a
// raw point.
func DecodePublicKey(data []byte) (*PublicKey, error) {
	if len(data) == 0 {
		return nil, WrapError("decode public key", ErrInvalidKeyFormat)
	}

	var cose coseEC2Key
	if err := cbor.Unmarshal(data, &cose); err == nil {
		key, err := publicKeyFromCOSE(&cose)
		if err != nil {
			return nil, WrapError("decode cose key", err)
		}
		return key, nil
	}

	key, err := publicKeyFromRawPoint(data)
	if err != nil {
		return nil, WrapError("decode raw point", err)
	}
	return key, nil
}

// publicKeyFromCOSE validates a parsed COSE map and extracts the coordinates.
func publicKeyFromCOSE(cose *coseEC2Key) (*PublicKey, error) {
	if cose.KeyType != coseKeyTypeEC2 {
		return nil, fmt.Errorf("%w: unsupported key type %d", ErrInvalidKeyFormat, cose.KeyType)
	}
	if cose.Curve != coseCurveP256 {
		return nil, fmt.Errorf("%w: unsupported curve %d", ErrInvalidKeyFormat, cose.Curve)
	}
	if cose.Algorithm != 0 && cose.Algorithm != coseAlgES256 {
		return nil, fmt.Errorf("%w: unsupported algorithm %d", ErrInvalidKeyFormat, cose.Algorithm)
	}

	key := &PublicKey{Format: FormatCOSE}
	if err := setCoordinate(key.X[:], cose.X); err != nil {
		return nil, fmt.Errorf("%w: x coordinate", err)
	}
	if err := setCoordinate(key.Y[:], cose.Y); err != nil {
		return nil, fmt.Errorf("%w: y coordinate", err)
	}
	return key.validated()
}

// publicKeyFromRawPoint parses a 65-byte uncompressed point.
func publicKeyFromRawPoint(data []byte) (*PublicKey, error) {
	if len(data) != rawPointSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyFormat, len(data), rawPointSize)
	}
	if data[0] != 0x04 {
		return nil, fmt.Errorf("%w: point is not uncompressed", ErrInvalidKeyFormat)
	}

	key := &PublicKey{Format: FormatRawPoint}
	copy(key.X[:], data[1:1+coordinateSize])
	copy(key.Y[:], data[1+coordinateSize:])
	return key.validated()
}

// setCoordinate left-pads a big-endian coordinate to the fixed field width.
// COSE encoders commonly strip leading zero bytes; anything longer than the
// field width is a format error, not an auto-correction case.
func setCoordinate(dst []byte, src []byte) error {
	if len(src) == 0 || len(src) > len(dst) {
		return fmt.Errorf("%w: coordinate is %d bytes", ErrInvalidKeyFormat, len(src))
	}
	copy(dst[len(dst)-len(src):], src)
	return nil
}

// validated confirms the coordinates form a point on P-256 by round-tripping
// through the standard library's SPKI parser.
func (k *PublicKey) validated() (*PublicKey, error) {
	if _, err := k.ECDSA(); err != nil {
		return nil, err
	}
	return k, nil
}

// RawPoint returns the 65-byte uncompressed point encoding.
func (k *PublicKey) RawPoint() []byte {
	point := make([]byte, 0, rawPointSize)
	point = append(point, 0x04)
	point = append(point, k.X[:]...)
	point = append(point, k.Y[:]...)
	return point
}

// SPKIDER returns the canonical 91-byte SubjectPublicKeyInfo DER encoding,
// the form credentials are stored in.
func (k *PublicKey) SPKIDER() []byte {
	der := make([]byte, 0, spkiSize)
	der = append(der, spkiPrefix...)
	der = append(der, k.RawPoint()...)
	return der
}

// ECDSA returns the key as a crypto/ecdsa public key ready for signature
// verification. Parsing the SPKI form also rejects coordinates that are not a
// point on the curve.
func (k *PublicKey) ECDSA() (*ecdsa.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(k.SPKIDER())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}
	ec, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an EC key", ErrInvalidKeyFormat)
	}
	return ec, nil
}

// PEM returns the key as PEM text with standard PUBLIC KEY armor, for storage
// dumps and interop with tooling that only reads PEM.
func (k *PublicKey) PEM() string {
	return EncodePEM(k.SPKIDER())
}

// EncodePEM wraps SPKI DER bytes in a PEM PUBLIC KEY block with the standard
// 64-character line wrapping.
func EncodePEM(der []byte) string {
	block := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: der,
	}
	return string(pem.EncodeToMemory(block))
}

// DecodePEMOrBase64 is the inverse path used when loading a stored credential
// for verification. It accepts a full PEM block, bare base64 SPKI DER, or
// bare base64 of a raw point, covering the storage formats the platform has
// shipped over time.
func DecodePEMOrBase64(s string) (*PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, WrapError("decode stored key", ErrInvalidKeyFormat)
	}

	if strings.Contains(s, "-----BEGIN") {
		block, _ := pem.Decode([]byte(s))
		if block == nil {
			return nil, WrapError("decode stored key", fmt.Errorf("%w: bad PEM block", ErrInvalidKeyFormat))
		}
		return DecodeSPKI(block.Bytes)
	}

	der, err := decodeAnyBase64(s)
	if err != nil {
		return nil, WrapError("decode stored key", fmt.Errorf("%w: bad base64", ErrInvalidKeyFormat))
	}
	if len(der) == rawPointSize {
		return publicKeyFromRawPoint(der)
	}
	return DecodeSPKI(der)
}

// DecodeSPKI parses a stored SPKI DER value back into a PublicKey.
func DecodeSPKI(der []byte) (*PublicKey, error) {
	if len(der) != spkiSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyFormat, len(der), spkiSize)
	}
	for i, b := range spkiPrefix {
		if der[i] != b {
			return nil, fmt.Errorf("%w: not a P-256 SPKI header", ErrInvalidKeyFormat)
		}
	}
	key, err := publicKeyFromRawPoint(der[len(spkiPrefix):])
	if err != nil {
		return nil, err
	}
	key.Format = FormatSPKI
	return key, nil
}

// decodeAnyBase64 accepts standard or url-safe base64, padded or not.
func decodeAnyBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("unrecognized base64")
}
