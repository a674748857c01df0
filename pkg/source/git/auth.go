package git

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"mercator-hq/deepreload/pkg/config"
)

// Auth types accepted in git.auth.type.
const (
	AuthNone  = "none"
	AuthToken = "token"
	AuthSSH   = "ssh"
)

// NewAuth returns the transport authentication for cfg. A nil method with
// a nil error means anonymous access.
func NewAuth(cfg *config.GitAuthConfig) (transport.AuthMethod, error) {
	if cfg == nil {
		return nil, nil
	}

	switch cfg.Type {
	case AuthNone, "":
		return nil, nil

	case AuthToken:
		if cfg.Token == "" {
			return nil, fmt.Errorf("token auth requires a non-empty token")
		}
		// Hosts ignore the user name for token auth.
		return &http.BasicAuth{Username: "git", Password: cfg.Token}, nil

	case AuthSSH:
		return sshAuth(cfg.SSHKeyPath, cfg.SSHKeyPassphrase)

	default:
		return nil, fmt.Errorf("unknown auth type: %s", cfg.Type)
	}
}

func sshAuth(keyPath, passphrase string) (transport.AuthMethod, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("ssh auth requires ssh_key_path")
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access SSH key file: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
	}

	auth, err := ssh.NewPublicKeysFromFile("git", keyPath, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}
	return auth, nil
}
