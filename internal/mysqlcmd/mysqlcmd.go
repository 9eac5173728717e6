// Package mysqlcmd builds the shell command lines ydl runs against MySQL.
//
// Every command is a complete POSIX shell script fragment (redirections
// included) meant to be run through "bash -c" inside a container or as a
// remote session command. Values are single-quoted for the shell; SQL
// literals are escaped before quoting.
package mysqlcmd

import (
	"fmt"
	"strings"

	"github.com/yankadevlab/ydl/internal/credentials"
	"github.com/yankadevlab/ydl/internal/util"
)

// Identity option names in the WordPress options table.
const (
	OptionHome    = "home"
	OptionSiteURL = "siteurl"
)

// connArgs renders the client connection flags.
func connArgs(c credentials.Credentials) string {
	var sb strings.Builder
	if c.Host != "" {
		sb.WriteString("-h " + util.ShellQuote(c.Host) + " ")
	}
	sb.WriteString("-u " + util.ShellQuote(c.Username))
	// A bare -p makes the client prompt, so an empty password is omitted.
	if c.Password != "" {
		sb.WriteString(" -p" + util.ShellQuote(c.Password))
	}
	return sb.String()
}

// Ident quotes a MySQL identifier with backticks.
func Ident(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Literal quotes a MySQL string literal.
func Literal(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// Dump writes a full dump of the credentials' database to file.
// --databases makes the dump carry CREATE DATABASE and USE statements.
func Dump(c credentials.Credentials, file string) string {
	return fmt.Sprintf("mysqldump %s --databases %s > %s",
		connArgs(c), util.ShellQuote(c.Database), util.ShellQuote(file))
}

// Drop drops the credentials' database.
func Drop(c credentials.Credentials) string {
	return Statement(c, fmt.Sprintf("DROP DATABASE %s;", Ident(c.Database)))
}

// Apply feeds file to the mysql client.
func Apply(c credentials.Credentials, file string) string {
	return fmt.Sprintf("mysql %s < %s", connArgs(c), util.ShellQuote(file))
}

// Statement runs sql with the batch client.
func Statement(c credentials.Credentials, sql string) string {
	return fmt.Sprintf("mysql %s -e %s", connArgs(c), util.ShellQuote(sql))
}

// Query runs sql in silent, headerless mode so rows come back as
// tab-separated lines.
func Query(c credentials.Credentials, sql string) string {
	return fmt.Sprintf("mysql %s -sN -e %s", connArgs(c), util.ShellQuote(sql))
}

// Ping checks that the server accepts connections.
func Ping(c credentials.Credentials) string {
	return fmt.Sprintf("mysqladmin %s --silent ping", connArgs(c))
}

// SelectIdentity selects the home and siteurl rows of table in db.
func SelectIdentity(db, table string) string {
	return fmt.Sprintf("SELECT option_name, option_value FROM %s.%s WHERE option_name IN (%s, %s);",
		Ident(db), Ident(table), Literal(OptionHome), Literal(OptionSiteURL))
}

// UpdateIdentity sets the home and siteurl rows of table in db.
func UpdateIdentity(db, table, home, siteURL string) string {
	tbl := Ident(db) + "." + Ident(table)
	return fmt.Sprintf(
		"UPDATE %s SET option_value = %s WHERE option_name = %s; UPDATE %s SET option_value = %s WHERE option_name = %s;",
		tbl, Literal(home), Literal(OptionHome),
		tbl, Literal(siteURL), Literal(OptionSiteURL))
}

// Redact replaces the password in a rendered command with "****".
func Redact(command, password string) string {
	if password == "" {
		return command
	}
	command = strings.ReplaceAll(command, util.ShellQuote(password), "'****'")
	return strings.ReplaceAll(command, password, "****")
}
