package crypto

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// CanonVersion identifies the report canonicalization scheme. Bump when
// the canonical form changes so old signatures keep verifying.
const CanonVersion = "v1"

// SignatureHeader metadata
type SignatureHeader struct {
	CanonVersion string `json:"canon_version"`
}

// SignatureEnvelope header + signature bytes
type SignatureEnvelope struct {
	Header    *SignatureHeader
	Signature []byte
}

// CanonicalizeReport produces the byte form that signatures cover:
// the report re-marshaled with sorted object keys and no extra
// whitespace. Two reports that differ only in formatting canonicalize
// to the same bytes.
func CanonicalizeReport(reportJSON []byte) ([]byte, error) {
	var doc any
	if err := json.Unmarshal(reportJSON, &doc); err != nil {
		return nil, fmt.Errorf("report is not valid JSON: %w", err)
	}
	canon, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("canonicalization failed: %w", err)
	}
	return canon, nil
}

// SignReport canonicalizes the report and returns a signature envelope.
func SignReport(reportJSON []byte, privateKeyPath string) ([]byte, error) {
	canon, err := CanonicalizeReport(reportJSON)
	if err != nil {
		return nil, err
	}

	sig, err := Sign(canon, privateKeyPath)
	if err != nil {
		return nil, err
	}

	return WriteSignature(sig, CanonVersion), nil
}

// VerifyReport checks a signature envelope against the report bytes.
func VerifyReport(reportJSON, sigData []byte, publicKeyPath string) (bool, error) {
	env, err := ReadSignature(sigData)
	if err != nil {
		return false, err
	}

	if v := env.GetCanonVersion(); v != CanonVersion {
		return false, fmt.Errorf("unsupported canon_version %q", v)
	}

	canon, err := CanonicalizeReport(reportJSON)
	if err != nil {
		return false, err
	}

	return Verify(canon, env.Signature, publicKeyPath)
}

// WriteSignature creates a signature envelope: a JSON header line
// followed by the hex-encoded signature.
func WriteSignature(sig []byte, canonVersion string) []byte {
	header := SignatureHeader{CanonVersion: canonVersion}
	headerBytes, _ := json.Marshal(header)

	sigHex := hex.EncodeToString(sig)
	return []byte(string(headerBytes) + "\n" + sigHex)
}

// ReadSignature parses an envelope. Bare hex without a header is
// accepted and treated as canon_version v1.
func ReadSignature(data []byte) (*SignatureEnvelope, error) {
	content := strings.TrimSpace(string(data))

	if strings.HasPrefix(content, "{") {
		lines := strings.SplitN(content, "\n", 2)
		if len(lines) != 2 {
			return nil, fmt.Errorf("invalid signature format: expected header and payload")
		}

		var header SignatureHeader
		if err := json.Unmarshal([]byte(lines[0]), &header); err != nil {
			return nil, fmt.Errorf("invalid signature header: %w", err)
		}

		sig, err := hex.DecodeString(strings.TrimSpace(lines[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid signature hex: %w", err)
		}

		return &SignatureEnvelope{
			Header:    &header,
			Signature: sig,
		}, nil
	}

	sig, err := hex.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("invalid signature format: %w", err)
	}

	return &SignatureEnvelope{
		Header:    nil,
		Signature: sig,
	}, nil
}

// GetCanonVersion returns the canonicalization version
func (e *SignatureEnvelope) GetCanonVersion() string {
	if e.Header == nil {
		return "v1"
	}
	return e.Header.CanonVersion
}
