package directoryv1

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/multiplay/internal/directory"
)

// Struct field names.
const (
	fieldSessionID  = "session_id"
	fieldOwnerName  = "owner_name"
	fieldMaxSlots   = "max_public_slots"
	fieldOpenSlots  = "open_public_slots"
	fieldLAN        = "lan"
	fieldPresence   = "presence"
	fieldAdvertise  = "advertise"
	fieldAddress    = "address"
	fieldSettings   = "settings"
	fieldCreatedAt  = "created_at"
	fieldHostToken  = "host_token"
	fieldListing    = "listing"
	fieldListings   = "listings"
	fieldMaxResults = "max_results"
	fieldPlayerName = "player_name"
)

// EncodeAdvert builds a CreateSession request.
func EncodeAdvert(a directory.Advert) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldOwnerName: a.OwnerName,
		fieldMaxSlots:  a.MaxPublicSlots,
		fieldLAN:       a.LAN,
		fieldPresence:  a.Presence,
		fieldAdvertise: a.Advertise,
		fieldAddress:   a.Address,
		fieldSettings:  settingsValue(a.Settings),
	})
}

// DecodeAdvert reads a CreateSession request.
func DecodeAdvert(s *structpb.Struct) (directory.Advert, error) {
	settings, err := decodeSettings(s)
	if err != nil {
		return directory.Advert{}, err
	}
	return directory.Advert{
		OwnerName:      stringField(s, fieldOwnerName),
		MaxPublicSlots: intField(s, fieldMaxSlots),
		LAN:            boolField(s, fieldLAN),
		Presence:       boolField(s, fieldPresence),
		Advertise:      boolField(s, fieldAdvertise),
		Address:        stringField(s, fieldAddress),
		Settings:       settings,
	}, nil
}

// EncodeListing converts a listing for the wire. The token hash is never sent.
func EncodeListing(l directory.Listing) (*structpb.Struct, error) {
	return structpb.NewStruct(listingMap(l))
}

func listingMap(l directory.Listing) map[string]any {
	return map[string]any{
		fieldSessionID: l.ID,
		fieldOwnerName: l.OwnerName,
		fieldMaxSlots:  l.MaxPublicSlots,
		fieldOpenSlots: l.OpenPublicSlots,
		fieldLAN:       l.LAN,
		fieldPresence:  l.Presence,
		fieldAdvertise: l.Advertised,
		fieldAddress:   l.Address,
		fieldSettings:  settingsValue(l.Settings),
		fieldCreatedAt: l.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// DecodeListing reads a listing from the wire.
func DecodeListing(s *structpb.Struct) (directory.Listing, error) {
	if s == nil {
		return directory.Listing{}, fmt.Errorf("decoding listing: missing document")
	}
	settings, err := decodeSettings(s)
	if err != nil {
		return directory.Listing{}, err
	}
	l := directory.Listing{
		ID:              stringField(s, fieldSessionID),
		OwnerName:       stringField(s, fieldOwnerName),
		MaxPublicSlots:  intField(s, fieldMaxSlots),
		OpenPublicSlots: intField(s, fieldOpenSlots),
		LAN:             boolField(s, fieldLAN),
		Presence:        boolField(s, fieldPresence),
		Advertised:      boolField(s, fieldAdvertise),
		Address:         stringField(s, fieldAddress),
		Settings:        settings,
	}
	if l.ID == "" {
		return directory.Listing{}, fmt.Errorf("decoding listing: %s is empty", fieldSessionID)
	}
	if raw := stringField(s, fieldCreatedAt); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return directory.Listing{}, fmt.Errorf("decoding listing %s: %w", l.ID, err)
		}
		l.CreatedAt = t
	}
	return l, nil
}

// EncodeQuery builds a FindSessions request.
func EncodeQuery(q directory.Query) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldMaxResults: q.MaxResults,
		fieldLAN:        q.LAN,
		fieldPresence:   q.Presence,
	})
}

// DecodeQuery reads a FindSessions request.
func DecodeQuery(s *structpb.Struct) directory.Query {
	return directory.Query{
		MaxResults: intField(s, fieldMaxResults),
		LAN:        boolField(s, fieldLAN),
		Presence:   boolField(s, fieldPresence),
	}
}

// EncodeListings builds a FindSessions response.
func EncodeListings(ls []directory.Listing) (*structpb.Struct, error) {
	items := make([]any, 0, len(ls))
	for _, l := range ls {
		items = append(items, listingMap(l))
	}
	return structpb.NewStruct(map[string]any{fieldListings: items})
}

// DecodeListings reads a FindSessions response.
func DecodeListings(s *structpb.Struct) ([]directory.Listing, error) {
	values := s.GetFields()[fieldListings].GetListValue().GetValues()
	out := make([]directory.Listing, 0, len(values))
	for i, v := range values {
		l, err := DecodeListing(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("listing %d: %w", i, err)
		}
		out = append(out, l)
	}
	return out, nil
}

// encodeCreated builds a CreateSession response.
func encodeCreated(l directory.Listing, token string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldListing:   listingMap(l),
		fieldHostToken: token,
	})
}

func decodeCreated(s *structpb.Struct) (directory.Listing, string, error) {
	l, err := DecodeListing(s.GetFields()[fieldListing].GetStructValue())
	if err != nil {
		return directory.Listing{}, "", err
	}
	return l, stringField(s, fieldHostToken), nil
}

func settingsValue(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func decodeSettings(s *structpb.Struct) (map[string]string, error) {
	fields := s.GetFields()[fieldSettings].GetStructValue().GetFields()
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("setting %q is not a string", k)
		}
		out[k] = sv.StringValue
	}
	return out, nil
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func intField(s *structpb.Struct, name string) int {
	return int(s.GetFields()[name].GetNumberValue())
}

func boolField(s *structpb.Struct, name string) bool {
	return s.GetFields()[name].GetBoolValue()
}
