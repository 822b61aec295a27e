package directoryv1_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/multiplay/internal/directory"
	"github.com/cory-johannsen/multiplay/internal/directory/directoryv1"
	"github.com/cory-johannsen/multiplay/internal/testutil"
)

func newClient(t *testing.T) *directoryv1.Client {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := directory.NewRegistry(directory.NewMemoryStore(), logger)
	srv := testutil.NewDirectoryServer(t, reg, logger)
	return directoryv1.NewClient(srv.Dial(t))
}

func testAdvert(owner string) directory.Advert {
	return directory.Advert{
		OwnerName:      owner,
		MaxPublicSlots: 2,
		Presence:       true,
		Advertise:      true,
		Address:        "10.0.0.7:7777",
		Settings:       map[string]string{"SessionHostName": "Alice's Game", "GameMode": "1"},
	}
}

func TestClient_CreateFindJoinDestroy(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	l, token, err := c.CreateSession(ctx, testAdvert("alice"))
	require.NoError(t, err)
	assert.NotEmpty(t, l.ID)
	assert.NotEmpty(t, token)
	assert.Empty(t, l.TokenHash)
	assert.Equal(t, 2, l.OpenPublicSlots)
	assert.False(t, l.CreatedAt.IsZero())

	found, err := c.FindSessions(ctx, directory.Query{MaxResults: 10, Presence: true})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, l.ID, found[0].ID)
	assert.Equal(t, "Alice's Game", found[0].Settings["SessionHostName"])
	assert.Equal(t, "10.0.0.7:7777", found[0].Address)

	joined, err := c.JoinSession(ctx, l.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, joined.OpenPublicSlots)

	require.NoError(t, c.LeaveSession(ctx, l.ID))
	require.NoError(t, c.DestroySession(ctx, l.ID, token))

	found, err = c.FindSessions(ctx, directory.Query{Presence: true})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestClient_ErrorsMapBack(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	_, err := c.JoinSession(ctx, "missing", "bob")
	assert.ErrorIs(t, err, directory.ErrListingNotFound)

	a := testAdvert("alice")
	a.MaxPublicSlots = 1
	l, token, err := c.CreateSession(ctx, a)
	require.NoError(t, err)

	_, err = c.JoinSession(ctx, l.ID, "alice")
	assert.ErrorIs(t, err, directory.ErrAlreadyInSession)

	_, err = c.JoinSession(ctx, l.ID, "bob")
	require.NoError(t, err)
	_, err = c.JoinSession(ctx, l.ID, "carol")
	assert.ErrorIs(t, err, directory.ErrSessionFull)

	assert.ErrorIs(t, c.DestroySession(ctx, l.ID, "wrong"), directory.ErrInvalidHostToken)
	require.NoError(t, c.DestroySession(ctx, l.ID, token))

	_, _, err = c.CreateSession(ctx, directory.Advert{OwnerName: "dave"})
	assert.ErrorIs(t, err, directory.ErrInvalidAdvert)
}

func TestToStatus_Codes(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{directory.ErrListingNotFound, codes.NotFound},
		{directory.ErrSessionFull, codes.ResourceExhausted},
		{directory.ErrAlreadyInSession, codes.AlreadyExists},
		{directory.ErrInvalidHostToken, codes.PermissionDenied},
		{directory.ErrInvalidAdvert, codes.InvalidArgument},
		{errors.New("disk on fire"), codes.Internal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, status.Code(directoryv1.ToStatus(tc.err)), tc.err.Error())
	}
	assert.NoError(t, directoryv1.ToStatus(nil))
}

func TestFromStatus_PassesThroughUnknown(t *testing.T) {
	err := status.Error(codes.Unavailable, "connection refused")
	assert.Equal(t, err, directoryv1.FromStatus(err))
	plain := errors.New("plain")
	assert.Equal(t, plain, directoryv1.FromStatus(plain))
}

func TestDecodeListing_RejectsMissingID(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"owner_name": "alice"})
	require.NoError(t, err)
	_, err = directoryv1.DecodeListing(s)
	assert.Error(t, err)
}

func TestDecodeAdvert_RejectsNonStringSetting(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{
		"owner_name": "alice",
		"settings":   map[string]any{"GameMode": 1},
	})
	require.NoError(t, err)
	_, err = directoryv1.DecodeAdvert(s)
	assert.Error(t, err)
}

// Property: a listing survives the wire encoding, minus its token hash.
func TestPropertyListingCodec(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxSlots := rapid.IntRange(1, 64).Draw(t, "max")
		l := directory.Listing{
			ID:              rapid.StringMatching(`[a-f0-9-]{8,36}`).Draw(t, "id"),
			OwnerName:       rapid.StringMatching(`[a-z]{1,12}`).Draw(t, "owner"),
			MaxPublicSlots:  maxSlots,
			OpenPublicSlots: rapid.IntRange(0, maxSlots).Draw(t, "open"),
			LAN:             rapid.Bool().Draw(t, "lan"),
			Presence:        rapid.Bool().Draw(t, "presence"),
			Advertised:      rapid.Bool().Draw(t, "advertised"),
			Address:         "127.0.0.1:7777",
			Settings: rapid.MapOf(
				rapid.StringMatching(`[A-Za-z]{1,10}`),
				rapid.StringMatching(`[ -~]{0,20}`),
			).Draw(t, "settings"),
			TokenHash: "secret",
			CreatedAt: time.Unix(rapid.Int64Range(0, 4e9).Draw(t, "created"), 0).UTC(),
		}
		s, err := directoryv1.EncodeListing(l)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := directoryv1.DecodeListing(s)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := l
		want.TokenHash = ""
		if !assert.ObjectsAreEqual(want, got) {
			t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
		}
	})
}
