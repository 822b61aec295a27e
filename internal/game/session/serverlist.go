package session

import "fmt"

// ToServerEntry maps one raw search result into a server browser row.
//
// A missing host name advertises as "". An unreadable game mode falls back
// to DefaultGameMode.
//
// Postcondition: Returns an entry with CurrentPlayers = MaxPublicSlots - OpenPublicSlots,
// or an error when the slot counts cannot describe a valid session.
func ToServerEntry(r SearchResult, hostNameKey string) (ServerEntry, error) {
	if r.MaxPublicSlots < 0 {
		return ServerEntry{}, fmt.Errorf("session %q: negative max slots %d", r.SessionID, r.MaxPublicSlots)
	}
	if r.OpenPublicSlots < 0 || r.OpenPublicSlots > r.MaxPublicSlots {
		return ServerEntry{}, fmt.Errorf("session %q: open slots %d outside [0, %d]", r.SessionID, r.OpenPublicSlots, r.MaxPublicSlots)
	}

	mode := DefaultGameMode
	if raw, ok := r.Settings[SettingGameMode]; ok {
		if parsed, err := ParseGameMode(raw); err == nil {
			mode = parsed
		}
	}

	return ServerEntry{
		Name:           r.Settings[hostNameKey],
		MaxPlayers:     r.MaxPublicSlots,
		CurrentPlayers: r.MaxPublicSlots - r.OpenPublicSlots,
		HostedBy:       r.OwningUserName,
		GameMode:       mode,
	}, nil
}

// ToServerEntries maps a whole search batch, preserving order. Entries that
// cannot be mapped are reported through skipped and left out; one bad entry
// never aborts the batch.
//
// Postcondition: len(entries) + number of skipped calls == len(results).
func ToServerEntries(results []SearchResult, hostNameKey string, skipped func(SearchResult, error)) []ServerEntry {
	entries := make([]ServerEntry, 0, len(results))
	for _, r := range results {
		e, err := ToServerEntry(r, hostNameKey)
		if err != nil {
			if skipped != nil {
				skipped(r, err)
			}
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// MappableResults keeps, in order, the results ToServerEntry accepts. Storing
// only these keeps browser rows and join indexes addressing the same session.
//
// Postcondition: len(kept) + number of skipped calls == len(results), and
// ToServerEntries(kept, hostNameKey, nil) has len(kept) entries.
func MappableResults(results []SearchResult, hostNameKey string, skipped func(SearchResult, error)) []SearchResult {
	kept := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if _, err := ToServerEntry(r, hostNameKey); err != nil {
			if skipped != nil {
				skipped(r, err)
			}
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
