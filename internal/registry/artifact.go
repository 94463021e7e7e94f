package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

var (
	ErrEmptyArtifact    = errors.New("artifact is empty")
	ErrTrailingArtifact = errors.New("artifact has trailing data")
)

// Artifact is the shared value a room converges on. raw is the compacted
// document as the client sent it and is what goes back on the wire; canon
// is only used for equality.
type Artifact struct {
	raw   json.RawMessage
	canon []byte
}

var emptyArtifact = mustArtifact(`{"length":0}`)

// EmptyArtifact is the value held by a freshly created room.
func EmptyArtifact() Artifact { return emptyArtifact }

func mustArtifact(raw string) Artifact {
	a, err := NewArtifact(json.RawMessage(raw))
	if err != nil {
		panic(err)
	}
	return a
}

// NewArtifact keeps raw (minus insignificant whitespace) and derives the
// canonical form: object keys sorted, numbers compared by exact value, so
// 1, 1.0 and 10e-1 are equal while integers past 2^53 stay distinct.
func NewArtifact(raw json.RawMessage) (Artifact, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Artifact{}, ErrEmptyArtifact
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Artifact{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Artifact{}, ErrTrailingArtifact
	}

	var canon bytes.Buffer
	if err := writeCanonical(&canon, v); err != nil {
		return Artifact{}, err
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return Artifact{}, err
	}
	return Artifact{raw: compact.Bytes(), canon: canon.Bytes()}, nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := lo.Keys(t)
		slices.Sort(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case json.Number:
		n, err := canonicalNumber(t.String())
		if err != nil {
			return err
		}
		buf.WriteString(n)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

// canonicalNumber rewrites a JSON number literal as <sign><digits>e<exp>
// with no leading or trailing zeros in digits. Zero of any form is "0".
func canonicalNumber(lit string) (string, error) {
	s := strings.TrimPrefix(lit, "-")
	neg := len(s) != len(lit)

	mant, exp := s, int64(0)
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		e, err := strconv.ParseInt(s[i+1:], 10, 64)
		if err != nil {
			return "", fmt.Errorf("number %s: %w", lit, err)
		}
		mant, exp = s[:i], e
	}

	intPart, frac, _ := strings.Cut(mant, ".")
	digits := strings.TrimLeft(intPart+frac, "0")
	exp -= int64(len(frac))
	trimmed := strings.TrimRight(digits, "0")
	exp += int64(len(digits) - len(trimmed))
	if trimmed == "" {
		return "0", nil
	}

	sign := ""
	if neg {
		sign = "-"
	}
	return sign + trimmed + "e" + strconv.FormatInt(exp, 10), nil
}

func (a Artifact) Equal(b Artifact) bool {
	return bytes.Equal(a.canon, b.canon)
}

// Length returns the numeric "length" member, or 0 when the artifact
// is not an object or carries no such member.
func (a Artifact) Length() int64 {
	dec := json.NewDecoder(bytes.NewReader(a.raw))
	dec.UseNumber()
	var probe struct {
		Length json.Number `json:"length"`
	}
	if err := dec.Decode(&probe); err != nil {
		return 0
	}
	if n, err := probe.Length.Int64(); err == nil {
		return n
	}
	f, err := probe.Length.Float64()
	if err != nil {
		return 0
	}
	return int64(f)
}

func (a Artifact) MarshalJSON() ([]byte, error) {
	if len(a.raw) == 0 {
		return emptyArtifact.raw, nil
	}
	return a.raw, nil
}

func (a *Artifact) UnmarshalJSON(b []byte) error {
	v, err := NewArtifact(b)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
