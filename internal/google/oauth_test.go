package google

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthURLRequestsOfflineAccess(t *testing.T) {
	creds := Credentials{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}

	url := creds.AuthURL()
	assert.Contains(t, url, "client_id=client-id")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "prompt=consent")
}

func TestScopesCoverGmailAndDrive(t *testing.T) {
	joined := strings.Join(Scopes, " ")
	assert.Contains(t, joined, "gmail.modify")
	assert.Contains(t, joined, "drive.file")
}
