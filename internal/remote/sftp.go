// Package remote wraps the single SFTP session used to walk the vendor's
// file tree. The vendor server is rate-limited and flaky, so the whole run
// shares one connection, every call carries a deadline, and directory
// listings go through the retry policy.
package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/vizzaro-home/wallsync/internal/config"
	"github.com/vizzaro-home/wallsync/internal/retry"
)

type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "directory"
)

// Entry is one file or directory discovered on the remote tree. Entries are
// ephemeral scan output and never persisted.
type Entry struct {
	Path string
	Name string
	Kind Kind
	Size int64
}

func (e Entry) IsDir() bool { return e.Kind == KindDir }

// remoteFS is the file tree surface the client walks. *sftp.Client provides
// it through sftpFS.
type remoteFS interface {
	ReadDir(path string) ([]os.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
}

type sftpFS struct{ *sftp.Client }

func (s sftpFS) Open(p string) (io.ReadCloser, error) { return s.Client.Open(p) }

type Client struct {
	ssh       *ssh.Client
	sftp      *sftp.Client
	fs        remoteFS
	retry     retry.Policy
	opTimeout time.Duration
	exts      map[string]struct{}
	excluded  map[string]struct{}
}

// Connect opens the shared SFTP session. A failure here is a startup failure:
// nothing can proceed without the vendor tree.
func Connect(cfg config.SFTP, policy retry.Policy, imageExts, excludedDirs []string) (*Client, error) {
	sshCfg := &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{ssh.Password(cfg.Password)},
		// The vendor box presents no stable host key; the original tooling
		// accepted it unconditionally as well.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.ConnectTimeout,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to start sftp session: %w", err)
	}

	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = time.Minute
	}

	c := &Client{
		ssh:       conn,
		sftp:      client,
		fs:        sftpFS{client},
		retry:     policy,
		opTimeout: opTimeout,
		exts:      make(map[string]struct{}, len(imageExts)),
		excluded:  make(map[string]struct{}, len(excludedDirs)),
	}
	for _, ext := range imageExts {
		c.exts[strings.ToLower(ext)] = struct{}{}
	}
	for _, dir := range excludedDirs {
		c.excluded[strings.ToLower(dir)] = struct{}{}
	}
	return c, nil
}

func (c *Client) Close() error {
	if err := c.sftp.Close(); err != nil {
		c.ssh.Close()
		return err
	}
	return c.ssh.Close()
}

// callRemote runs one blocking sftp call with a deadline. The sftp API cannot
// take a context, so a wedged call is abandoned to its goroutine and the
// timeout surfaces as an error to the retry policy instead of hanging the
// run; the goroutine exits when the connection is eventually torn down.
func callRemote[T any](ctx context.Context, timeout time.Duration, op string, fn func() (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn()
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%s: %w", op, ctx.Err())
	}
}

// List returns every entry in one remote directory.
func (c *Client) List(ctx context.Context, dir string) ([]Entry, error) {
	var entries []Entry
	err := c.retry.Do(ctx, "list "+dir, func() error {
		infos, err := callRemote(ctx, c.opTimeout, "list "+dir, func() ([]os.FileInfo, error) {
			return c.fs.ReadDir(dir)
		})
		if err != nil {
			return err
		}
		entries = entries[:0]
		for _, fi := range infos {
			kind := KindFile
			if fi.IsDir() {
				kind = KindDir
			}
			entries = append(entries, Entry{
				Path: path.Join(dir, fi.Name()),
				Name: fi.Name(),
				Kind: kind,
				Size: fi.Size(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Read downloads one remote file into memory.
func (c *Client) Read(ctx context.Context, filePath string) ([]byte, error) {
	var data []byte
	err := c.retry.Do(ctx, "read "+filePath, func() error {
		b, err := callRemote(ctx, c.opTimeout, "read "+filePath, func() ([]byte, error) {
			f, err := c.fs.Open(filePath)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return io.ReadAll(f)
		})
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ScanImages walks the subtree depth-first and returns every image file.
// An unreadable subdirectory is logged and skipped so one bad folder cannot
// sink the whole collection. Known non-product directories (image dumps,
// thumbnail caches) are not recursed into.
func (c *Client) ScanImages(ctx context.Context, root string) []Entry {
	var out []Entry
	c.scanDir(ctx, root, &out)
	return out
}

func (c *Client) scanDir(ctx context.Context, dir string, out *[]Entry) {
	if ctx.Err() != nil {
		return
	}

	infos, err := callRemote(ctx, c.opTimeout, "scan "+dir, func() ([]os.FileInfo, error) {
		return c.fs.ReadDir(dir)
	})
	if err != nil {
		slog.Warn("Skipping unreadable directory", "dir", dir, "err", err)
		return
	}

	for _, fi := range infos {
		name := fi.Name()
		if fi.IsDir() {
			if _, skip := c.excluded[strings.ToLower(name)]; skip {
				slog.Debug("Skipping excluded directory", "dir", name)
				continue
			}
			c.scanDir(ctx, path.Join(dir, name), out)
			continue
		}
		if _, ok := c.exts[strings.ToLower(path.Ext(name))]; ok {
			*out = append(*out, Entry{
				Path: path.Join(dir, name),
				Name: name,
				Kind: KindFile,
				Size: fi.Size(),
			})
		}
	}
}
