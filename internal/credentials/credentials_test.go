package credentials

import (
	"errors"
	"testing"
)

const composeFile = `services:
  db:
    image: mysql:8
    environment:
      - MYSQL_DATABASE=wp_site_a
  wordpress:
    image: wordpress:latest
    environment:
      - WORDPRESS_DB_HOST=db
      - WORDPRESS_DB_NAME=wp_site_a
      - WORDPRESS_DB_USER=site_user
      - WORDPRESS_DB_PASSWORD=s3cret
`

const wpConfig = `<?php
/** The name of the database for WordPress */
define( 'DB_NAME', 'wp_site_b' );

/** Database username */
define( 'DB_USER', 'prod_user' );

/** Database password */
define( 'DB_PASSWORD', 'p@ss word' );

define( 'DB_HOST', 'localhost' );
`

func TestFromCompose(t *testing.T) {
	got, err := FromCompose("docker-compose.yml", composeFile)
	if err != nil {
		t.Fatalf("FromCompose() error = %v", err)
	}
	want := Credentials{Database: "wp_site_a", Username: "site_user", Password: "s3cret"}
	if got != want {
		t.Errorf("FromCompose() = %+v, want %+v", got, want)
	}
}

func TestFromCompose_CRLF(t *testing.T) {
	content := "    environment:\r\n      - WORDPRESS_DB_NAME=wp\r\n      - WORDPRESS_DB_USER=u\r\n      - WORDPRESS_DB_PASSWORD=p\r\n"
	got, err := FromCompose("docker-compose.yml", content)
	if err != nil {
		t.Fatalf("FromCompose() error = %v", err)
	}
	if got.Database != "wp" || got.Username != "u" || got.Password != "p" {
		t.Errorf("FromCompose() = %+v, want trailing CR stripped", got)
	}
}

func TestFromWPConfig(t *testing.T) {
	got, err := FromWPConfig("wp-config.php", wpConfig)
	if err != nil {
		t.Fatalf("FromWPConfig() error = %v", err)
	}
	want := Credentials{Database: "wp_site_b", Username: "prod_user", Password: "p@ss word"}
	if got != want {
		t.Errorf("FromWPConfig() = %+v, want %+v", got, want)
	}
}

func TestExtract_MissingFieldIsAllOrNothing(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(string, string) (Credentials, error)
		content string
		field   Field
	}{
		{
			name:    "compose without user",
			fn:      FromCompose,
			content: "- WORDPRESS_DB_NAME=wp\n- WORDPRESS_DB_PASSWORD=p\n",
			field:   FieldUsername,
		},
		{
			name:    "compose mapping syntax is not guessed",
			fn:      FromCompose,
			content: "WORDPRESS_DB_NAME: wp\nWORDPRESS_DB_USER: u\nWORDPRESS_DB_PASSWORD: p\n",
			field:   FieldDatabase,
		},
		{
			name:    "wp-config without password",
			fn:      FromWPConfig,
			content: "define( 'DB_NAME', 'wp' );\ndefine( 'DB_USER', 'u' );\n",
			field:   FieldPassword,
		},
		{
			name:    "wp-config empty database name",
			fn:      FromWPConfig,
			content: "define( 'DB_NAME', '' );\ndefine( 'DB_USER', 'u' );\ndefine( 'DB_PASSWORD', 'p' );\n",
			field:   FieldDatabase,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn("src", tt.content)
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("error = %v, want ErrNotFound", err)
			}
			var nf *NotFoundError
			if !errors.As(err, &nf) || nf.Field != tt.field {
				t.Errorf("error = %v, want missing %s", err, tt.field)
			}
			if got != (Credentials{}) {
				t.Errorf("partial credentials returned: %+v", got)
			}
		})
	}
}

func TestFromWPConfig_EmptyPasswordAllowed(t *testing.T) {
	content := "define('DB_NAME', 'wp');\ndefine('DB_USER', 'root');\ndefine('DB_PASSWORD', '');\n"
	got, err := FromWPConfig("wp-config.php", content)
	if err != nil {
		t.Fatalf("FromWPConfig() error = %v", err)
	}
	if got.Password != "" || got.Username != "root" {
		t.Errorf("FromWPConfig() = %+v", got)
	}
}

func TestCredentialsString_HidesPassword(t *testing.T) {
	c := Credentials{Database: "wp", Username: "u", Password: "hunter2"}.WithHost("172.18.0.2")
	if s := c.String(); s != "u@172.18.0.2/wp" {
		t.Errorf("String() = %q", s)
	}
}
