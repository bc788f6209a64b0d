package lobby

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
)

var foldCaser = cases.Fold()

func hashLobbyPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkLobbyPassword(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// containsFold reports whether needle appears in haystack under Unicode
// case folding, so a search for "Nova" also matches a lobby named "NOVA"
// or "nova" without depending on the client's locale.
func containsFold(haystack, needle string) bool {
	return strings.Contains(foldCaser.String(haystack), foldCaser.String(needle))
}

// paginate returns the [offset, offset+limit) slice of lobbies, clamped
// to bounds. limit == 0 means "no limit".
func paginate(lobbies []*Lobby, offset, limit uint32) []*Lobby {
	o := int(offset)
	if o >= len(lobbies) {
		return nil
	}
	end := len(lobbies)
	if limit > 0 && o+int(limit) < end {
		end = o + int(limit)
	}
	return lobbies[o:end]
}
