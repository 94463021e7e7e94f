package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArtifact_KeepsClientBytes(t *testing.T) {
	a := artifact(t, `{"b":1, "a":{"y":2,"x":1}, "length": 10}`)

	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":{"y":2,"x":1},"length":10}`, string(b))
	assert.Equal(t, int64(10), a.Length())
}

func TestArtifact_EqualIgnoresLayout(t *testing.T) {
	a := artifact(t, `{"b":[1,2], "a":{"y":"z","x":null}}`)
	b := artifact(t, `{"a":{"x":null,"y":"z"},"b":[1,2]}`)
	assert.True(t, a.Equal(b))

	c := artifact(t, `{"a":{"x":null,"y":"z"},"b":[2,1]}`)
	assert.False(t, a.Equal(c), "array order matters")
}

func TestArtifact_NumbersComparedExactly(t *testing.T) {
	big1 := artifact(t, `{"length":5,"rev":9007199254740993}`)
	big2 := artifact(t, `{"length":5,"rev":9007199254740992}`)
	assert.False(t, big1.Equal(big2), "integers above 2^53 must not collapse")

	b, err := json.Marshal(big1)
	require.NoError(t, err)
	assert.Equal(t, `{"length":5,"rev":9007199254740993}`, string(b))

	assert.True(t, artifact(t, `[1, 1.0, 10e-1, 0.1e1]`).Equal(artifact(t, `[1,1,1,1]`)))
	assert.True(t, artifact(t, `[0, -0, 0.000, 0e10]`).Equal(artifact(t, `[0,0,0,0]`)))
	assert.True(t, artifact(t, `1500`).Equal(artifact(t, `1.5E+3`)))
	assert.False(t, artifact(t, `0.1`).Equal(artifact(t, `0.10000000000000001`)))
	assert.False(t, artifact(t, `-1`).Equal(artifact(t, `1`)))
}

func TestCanonicalNumber(t *testing.T) {
	for lit, want := range map[string]string{
		"0":                "0",
		"-0.0":             "0",
		"120":              "12e1",
		"0.05":             "5e-2",
		"-3.25e2":          "-325e0",
		"9007199254740993": "9007199254740993e0",
		"1E-400":           "1e-400",
	} {
		got, err := canonicalNumber(lit)
		require.NoError(t, err, lit)
		assert.Equal(t, want, got, lit)
	}
}

func TestArtifact_LengthBeyondFloatPrecision(t *testing.T) {
	assert.Equal(t, int64(9007199254740993), artifact(t, `{"length":9007199254740993}`).Length())
	assert.Equal(t, int64(1500), artifact(t, `{"length":1.5e3}`).Length())
	assert.Equal(t, int64(0), artifact(t, `{"length":null}`).Length())
}

func TestNewArtifact_Rejects(t *testing.T) {
	_, err := NewArtifact(nil)
	assert.ErrorIs(t, err, ErrEmptyArtifact)

	_, err = NewArtifact(json.RawMessage(`{"length":`))
	assert.Error(t, err)

	_, err = NewArtifact(json.RawMessage(`{"length":1} {}`))
	assert.ErrorIs(t, err, ErrTrailingArtifact)
}

func TestArtifact_LengthOfNonObject(t *testing.T) {
	a, err := NewArtifact(json.RawMessage(`"just a string"`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.Length())
	assert.False(t, a.Equal(EmptyArtifact()))
}

func TestArtifact_ZeroValueMarshalsAsEmpty(t *testing.T) {
	b, err := json.Marshal(Artifact{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"length":0}`, string(b))
}
