package writerbackends

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type sftpUploader struct {
	ssh    *ssh.Client
	client *sftp.Client
	dirs   map[string]bool // remote directories known to exist
}

// sftpAuth picks PIXSCALE_SFTP_KEY (base64 or raw PEM) over PIXSCALE_SFTP_PASSWORD
func sftpAuth() ([]ssh.AuthMethod, error) {
	if privateKey := os.Getenv("PIXSCALE_SFTP_KEY"); privateKey != "" {
		keyBytes, err := base64.StdEncoding.DecodeString(privateKey)
		if err != nil {
			keyBytes = []byte(privateKey)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	if password := os.Getenv("PIXSCALE_SFTP_PASSWORD"); password != "" {
		return []ssh.AuthMethod{ssh.Password(password)}, nil
	}
	return nil, fmt.Errorf("no auth method provided; set PIXSCALE_SFTP_PASSWORD or PIXSCALE_SFTP_KEY")
}

func newSFTPUploader(ctx context.Context, target Target) (*sftpUploader, error) {
	auths, err := sftpAuth()
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            target.User,
		Auth:            auths,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}
	addr := net.JoinHostPort(target.Host, target.Port)

	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", addr, err)
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(clientConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("create sftp client: %w", err)
	}
	return &sftpUploader{ssh: sshClient, client: sftpClient, dirs: make(map[string]bool)}, nil
}

func (u *sftpUploader) Upload(_ context.Context, key, _ string, reader io.Reader) error {
	dir := path.Dir(key)
	if !u.dirs[dir] {
		if err := mkdirAllSFTP(u.client, dir); err != nil {
			return fmt.Errorf("ensure remote dir %s: %w", dir, err)
		}
		u.dirs[dir] = true
	}

	f, err := u.client.Create(key)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("copy to remote file %s: %w", key, err)
	}
	return nil
}

func (u *sftpUploader) Close() error {
	u.client.Close()
	return u.ssh.Close()
}

// mkdirAllSFTP mimics os.MkdirAll for an SFTP server by creating each segment of the path.
func mkdirAllSFTP(client *sftp.Client, dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}

	parts := strings.Split(dir, "/")
	cur := ""
	if strings.HasPrefix(dir, "/") {
		cur = "/"
	}

	for _, p := range parts {
		if p == "" {
			continue
		}
		cur = path.Join(cur, p)
		if _, err := client.Stat(cur); err != nil {
			if os.IsNotExist(err) {
				if err := client.Mkdir(cur); err != nil {
					return fmt.Errorf("mkdir %s: %w", cur, err)
				}
			} else {
				return fmt.Errorf("stat %s: %w", cur, err)
			}
		}
	}
	return nil
}
