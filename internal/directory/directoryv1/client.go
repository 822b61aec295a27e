package directoryv1

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/multiplay/internal/directory"
)

// Client calls the Directory service. Registry errors returned by the server
// are translated back so callers can match them with errors.Is.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a Client over cc.
//
// Precondition: cc must be non-nil.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, FromStatus(err)
	}
	return out, nil
}

// CreateSession lists a session.
//
// Postcondition: Returns the listing and its host token, or an error.
func (c *Client) CreateSession(ctx context.Context, a directory.Advert) (directory.Listing, string, error) {
	req, err := EncodeAdvert(a)
	if err != nil {
		return directory.Listing{}, "", fmt.Errorf("encoding advert: %w", err)
	}
	resp, err := c.invoke(ctx, MethodCreateSession, req)
	if err != nil {
		return directory.Listing{}, "", err
	}
	return decodeCreated(resp)
}

// FindSessions returns listings matching q.
func (c *Client) FindSessions(ctx context.Context, q directory.Query) ([]directory.Listing, error) {
	req, err := EncodeQuery(q)
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}
	resp, err := c.invoke(ctx, MethodFindSessions, req)
	if err != nil {
		return nil, err
	}
	return DecodeListings(resp)
}

// JoinSession claims a public slot in the session for playerName.
func (c *Client) JoinSession(ctx context.Context, sessionID, playerName string) (directory.Listing, error) {
	req, err := structpb.NewStruct(map[string]any{
		fieldSessionID:  sessionID,
		fieldPlayerName: playerName,
	})
	if err != nil {
		return directory.Listing{}, fmt.Errorf("encoding join: %w", err)
	}
	resp, err := c.invoke(ctx, MethodJoinSession, req)
	if err != nil {
		return directory.Listing{}, err
	}
	return DecodeListing(resp.GetFields()[fieldListing].GetStructValue())
}

// LeaveSession releases a public slot in the session.
func (c *Client) LeaveSession(ctx context.Context, sessionID string) error {
	req, err := structpb.NewStruct(map[string]any{fieldSessionID: sessionID})
	if err != nil {
		return fmt.Errorf("encoding leave: %w", err)
	}
	_, err = c.invoke(ctx, MethodLeaveSession, req)
	return err
}

// DestroySession delists the session.
//
// Precondition: token is the host token returned by CreateSession.
func (c *Client) DestroySession(ctx context.Context, sessionID, token string) error {
	req, err := structpb.NewStruct(map[string]any{
		fieldSessionID: sessionID,
		fieldHostToken: token,
	})
	if err != nil {
		return fmt.Errorf("encoding destroy: %w", err)
	}
	_, err = c.invoke(ctx, MethodDestroySession, req)
	return err
}
