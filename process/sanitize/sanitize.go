// Package sanitize resets or tidies the application tables.
package sanitize

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"smartreceipts/models"
)

// DefaultTables are the application tables, children last.
const DefaultTables = "roles,users,receipts,uploads,refresh_tokens"

var tableNameRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParseTables splits a comma separated list and drops names that are not
// plain identifiers. Rejected names are returned separately.
func ParseTables(list string) (valid, rejected []string) {
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !tableNameRE.MatchString(p) {
			rejected = append(rejected, p)
			continue
		}
		valid = append(valid, p)
	}
	return valid, rejected
}

// TruncateStatement builds the TRUNCATE for already validated names.
func TruncateStatement(tables []string) string {
	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, `"`+t+`"`)
	}
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
}

// ExistingTables keeps the names present in the public schema.
func ExistingTables(ctx context.Context, db *gorm.DB, tables []string) ([]string, error) {
	var existing []string
	for _, t := range tables {
		var cnt int64
		if err := db.WithContext(ctx).Raw("SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?", t).Scan(&cnt).Error; err != nil {
			return nil, fmt.Errorf("query pg_tables for %s: %w", t, err)
		}
		if cnt > 0 {
			existing = append(existing, t)
		}
	}
	return existing, nil
}

// Truncate empties tables. The caller validates and confirms first.
func Truncate(ctx context.Context, db *gorm.DB, tables []string, out io.Writer) error {
	if len(tables) == 0 {
		return nil
	}
	stmt := TruncateStatement(tables)
	fmt.Fprintf(out, "Executing: %s\n", stmt)
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return db.WithContext(ctx).Exec(stmt).Error
}

// PruneRefreshTokens deletes refresh tokens that are revoked or expired at now.
func PruneRefreshTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("revoked = ? OR expires_at < ?", true, now).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}
