package repository

import (
	"fmt"
	"strings"

	"filehost-backend/internal/models"
)

// FileFilter narrows a file listing. Set fields combine with AND.
type FileFilter struct {
	Kind        string
	Tags        []string // any-of
	Description string   // case-insensitive substring
	Filename    string   // case-insensitive substring
	UserID      string
	Limit       int
	Offset      int
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// where renders the WHERE clause scoped to clientID. Avatars are only listed
// when asked for explicitly.
func (f FileFilter) where(clientID string) (string, []any) {
	args := []any{clientID}
	conds := []string{"client_id = $1"}

	add := func(format string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if f.Kind != "" {
		add("kind = $%d", f.Kind)
	} else {
		add("kind <> $%d", models.KindAvatar)
	}
	if len(f.Tags) > 0 {
		add("tags && $%d", f.Tags)
	}
	if f.Description != "" {
		add("description ILIKE $%d", containsPattern(f.Description))
	}
	if f.Filename != "" {
		add("filename ILIKE $%d", containsPattern(f.Filename))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

// Matches applies the filter to an in-memory file. It mirrors where.
func (f FileFilter) Matches(file *models.File) bool {
	if f.Kind != "" {
		if file.Kind != f.Kind {
			return false
		}
	} else if file.Kind == models.KindAvatar {
		return false
	}
	if len(f.Tags) > 0 && !anyTag(file.Tags, f.Tags) {
		return false
	}
	if f.Description != "" {
		if file.Description == nil || !containsFold(*file.Description, f.Description) {
			return false
		}
	}
	if f.Filename != "" && !containsFold(file.Filename, f.Filename) {
		return false
	}
	if f.UserID != "" && (file.UserID == nil || *file.UserID != f.UserID) {
		return false
	}
	return true
}

func anyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// prefixed qualifies every column of a comma-separated list with prefix
func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
