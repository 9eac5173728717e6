package docker

import "github.com/yankadevlab/ydl/internal/credentials"

var testCreds = credentials.Credentials{Database: "wp_site_a", Username: "wp", Password: "secret"}
