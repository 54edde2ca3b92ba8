package authenticator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testClaims struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func Test_jwtTokenEngine_GenerateAndVerify(t *testing.T) {
	engine := NewTokenEngine[testClaims]("secret", time.Minute)

	token, err := engine.Generate("user-1", testClaims{ID: "user-1", Name: "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	obj, err := engine.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", obj.ID)
	require.Equal(t, "alice", obj.Name)

	_, err = engine.Verify("not-a-token")
	require.Error(t, err)
}

func Test_jwtTokenEngine_RejectsForeignSecret(t *testing.T) {
	engine := NewTokenEngine[testClaims]("secret", time.Minute)
	foreign := NewTokenEngine[testClaims]("other-secret", time.Minute)

	token, err := foreign.Generate("user-1", testClaims{ID: "user-1"})
	require.NoError(t, err)

	_, err = engine.Verify(token)
	require.Error(t, err)
}

func Test_jwtTokenEngine_RejectsExpiredToken(t *testing.T) {
	engine := NewTokenEngine[testClaims]("secret", -time.Minute)

	token, err := engine.Generate("user-1", testClaims{ID: "user-1"})
	require.NoError(t, err)

	_, err = engine.Verify(token)
	require.Error(t, err)
}
