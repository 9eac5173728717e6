package migrate

import (
	"bytes"

	"github.com/yankadevlab/ydl/internal/mysqlcmd"
)

// Transform renames database from to database to in a dump by rewriting
// every backtick-quoted occurrence of the identifier. Unquoted text, such
// as row data mentioning the name, is left alone.
func Transform(content []byte, from, to string) []byte {
	if from == to {
		return content
	}
	return bytes.ReplaceAll(content, []byte(mysqlcmd.Ident(from)), []byte(mysqlcmd.Ident(to)))
}
