// Package credentials extracts database credentials from the two
// configuration sources ydl understands: a docker compose stack file and a
// WordPress wp-config.php.
//
// Extraction is all-or-nothing. Each field is matched by its own pattern;
// if any of the three is absent the result is a *NotFoundError and no
// partial record is returned. Formats other than the documented ones are
// not guessed at.
package credentials

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotFound matches every *NotFoundError.
var ErrNotFound = errors.New("credentials not found")

// Field names a credential component.
type Field string

const (
	FieldDatabase Field = "database"
	FieldUsername Field = "username"
	FieldPassword Field = "password"
)

// Credentials addresses a MySQL database.
type Credentials struct {
	Database string
	Username string
	Password string
	// Host is the server address, empty when the engine is reached through
	// a local socket or resolved at exec time.
	Host string
}

// WithHost returns a copy of c addressed to host.
func (c Credentials) WithHost(host string) Credentials {
	c.Host = host
	return c
}

// String omits the password.
func (c Credentials) String() string {
	if c.Host == "" {
		return fmt.Sprintf("%s@%s", c.Username, c.Database)
	}
	return fmt.Sprintf("%s@%s/%s", c.Username, c.Host, c.Database)
}

// NotFoundError reports the first field that could not be extracted.
type NotFoundError struct {
	Source string
	Field  Field
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("credentials not found: no %s in %s", e.Field, e.Source)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// pattern pairs a field with the regexp capturing its value in group 1.
type pattern struct {
	field Field
	re    *regexp.Regexp
}

// Compose stack environment entries, list syntax:
//
//	environment:
//	  - WORDPRESS_DB_NAME=wp_site
var composePatterns = []pattern{
	{FieldDatabase, regexp.MustCompile(`(?m)^\s*-\s*WORDPRESS_DB_NAME=(.*?)\s*$`)},
	{FieldUsername, regexp.MustCompile(`(?m)^\s*-\s*WORDPRESS_DB_USER=(.*?)\s*$`)},
	{FieldPassword, regexp.MustCompile(`(?m)^\s*-\s*WORDPRESS_DB_PASSWORD=(.*?)\s*$`)},
}

// wp-config.php constants:
//
//	define( 'DB_NAME', 'wp_site' );
var wpConfigPatterns = []pattern{
	{FieldDatabase, regexp.MustCompile(`define\(\s*'DB_NAME',\s*'([^']*)'`)},
	{FieldUsername, regexp.MustCompile(`define\(\s*'DB_USER',\s*'([^']*)'`)},
	{FieldPassword, regexp.MustCompile(`define\(\s*'DB_PASSWORD',\s*'([^']*)'`)},
}

// FromCompose extracts credentials from docker-compose.yml content.
// source names the file in errors.
func FromCompose(source, content string) (Credentials, error) {
	return extract(source, content, composePatterns)
}

// FromWPConfig extracts credentials from wp-config.php content.
func FromWPConfig(source, content string) (Credentials, error) {
	return extract(source, content, wpConfigPatterns)
}

func extract(source, content string, patterns []pattern) (Credentials, error) {
	values := make(map[Field]string, len(patterns))
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(content)
		if m == nil {
			return Credentials{}, &NotFoundError{Source: source, Field: p.field}
		}
		v := strings.TrimSpace(m[1])
		if v == "" && p.field != FieldPassword {
			return Credentials{}, &NotFoundError{Source: source, Field: p.field}
		}
		values[p.field] = v
	}
	return Credentials{
		Database: values[FieldDatabase],
		Username: values[FieldUsername],
		Password: values[FieldPassword],
	}, nil
}
