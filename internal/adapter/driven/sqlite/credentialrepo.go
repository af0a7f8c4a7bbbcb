package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
// Passwords are encrypted with AES-256-GCM before write and decrypted after read.
// Public portal credentials carry no password and never need the key.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
	now func() time.Time
}

// NewCredentialRepo creates a new CredentialRepo. key must be 32 bytes for AES-256-GCM,
// or nil, in which case any credential carrying a password fails with ErrEncryptionKeyNotSet.
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key, now: time.Now}
}

const credentialColumns = `id, portal_type, portal_name, url, username, password, is_active, created_at, updated_at`

// FindActive returns every active credential ordered by portal name.
func (r *CredentialRepo) FindActive(ctx context.Context) ([]model.Credential, error) {
	const query = `SELECT ` + credentialColumns + ` FROM credentials WHERE is_active = 1 ORDER BY portal_name, id`
	return r.query(ctx, "find active credentials", query)
}

// List returns all credentials ordered by portal name.
func (r *CredentialRepo) List(ctx context.Context) ([]model.Credential, error) {
	const query = `SELECT ` + credentialColumns + ` FROM credentials ORDER BY portal_name, id`
	return r.query(ctx, "list credentials", query)
}

// FindByID returns the credential with the given ID.
func (r *CredentialRepo) FindByID(ctx context.Context, id int64) (model.Credential, error) {
	const query = `SELECT ` + credentialColumns + ` FROM credentials WHERE id = ?`
	cred, err := r.scanCredential(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credential{}, fmt.Errorf("find credential %d: %w", id, driven.ErrCredentialNotFound)
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("find credential %d: %w", id, err)
	}
	return cred, nil
}

// Save inserts the credential when ID is zero and updates it otherwise.
func (r *CredentialRepo) Save(ctx context.Context, cred model.Credential) (model.Credential, error) {
	encrypted, err := r.encryptPassword(cred.Password)
	if err != nil {
		return model.Credential{}, err
	}

	now := r.now().UTC().Truncate(time.Millisecond)
	cred.UpdatedAt = now

	if cred.ID == 0 {
		cred.CreatedAt = now
		const query = `INSERT INTO credentials (portal_type, portal_name, url, username, password, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		res, err := r.db.Writer.ExecContext(ctx, query,
			string(cred.PortalType), cred.PortalName, cred.URL, cred.Username, encrypted,
			boolToInt(cred.IsActive), toMillis(now), toMillis(now),
		)
		if err != nil {
			return model.Credential{}, fmt.Errorf("insert credential %q: %w", cred.PortalName, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return model.Credential{}, fmt.Errorf("insert credential %q: last insert id: %w", cred.PortalName, err)
		}
		cred.ID = id
		return cred, nil
	}

	const query = `UPDATE credentials
		SET portal_type = ?, portal_name = ?, url = ?, username = ?, password = ?, is_active = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.Writer.ExecContext(ctx, query,
		string(cred.PortalType), cred.PortalName, cred.URL, cred.Username, encrypted,
		boolToInt(cred.IsActive), toMillis(now), cred.ID,
	)
	if err != nil {
		return model.Credential{}, fmt.Errorf("update credential %d: %w", cred.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Credential{}, fmt.Errorf("update credential %d: %w", cred.ID, driven.ErrCredentialNotFound)
	}

	var createdAt int64
	err = r.db.Writer.QueryRowContext(ctx, `SELECT created_at FROM credentials WHERE id = ?`, cred.ID).Scan(&createdAt)
	if err != nil {
		return model.Credential{}, fmt.Errorf("read credential %d: %w", cred.ID, err)
	}
	cred.CreatedAt = fromMillis(createdAt).UTC()

	return cred, nil
}

// Delete removes the credential with the given ID.
func (r *CredentialRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM credentials WHERE id = ?`
	res, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete credential %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete credential %d: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete credential %d: %w", id, driven.ErrCredentialNotFound)
	}
	return nil
}

func (r *CredentialRepo) query(ctx context.Context, op, query string) ([]model.Credential, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", driven.ErrStoreUnavailable, op, err)
	}
	defer rows.Close()

	creds := make([]model.Credential, 0)
	for rows.Next() {
		cred, err := r.scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", driven.ErrStoreUnavailable, op, err)
	}

	return creds, nil
}

func (r *CredentialRepo) scanCredential(s scanner) (model.Credential, error) {
	var (
		cred                 model.Credential
		portalType           string
		encrypted            string
		active               int
		createdAt, updatedAt int64
	)
	if err := s.Scan(&cred.ID, &portalType, &cred.PortalName, &cred.URL, &cred.Username,
		&encrypted, &active, &createdAt, &updatedAt); err != nil {
		return model.Credential{}, fmt.Errorf("scan credential: %w", err)
	}

	pt, err := model.ParsePortalType(portalType)
	if err != nil {
		return model.Credential{}, fmt.Errorf("credential %d: %w", cred.ID, err)
	}
	cred.PortalType = pt
	cred.IsActive = active != 0
	cred.CreatedAt = fromMillis(createdAt).UTC()
	cred.UpdatedAt = fromMillis(updatedAt).UTC()

	cred.Password, err = r.decryptPassword(encrypted)
	if err != nil {
		return model.Credential{}, fmt.Errorf("decrypt credential %d: %w", cred.ID, err)
	}

	return cred, nil
}

func (r *CredentialRepo) encryptPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return r.encrypt(plaintext)
}

func (r *CredentialRepo) decryptPassword(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}
	return r.decrypt(encoded)
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded string
// containing the nonce (12 bytes) prepended to the ciphertext.
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	gcm, err := r.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *CredentialRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := r.aead()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

func (r *CredentialRepo) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
