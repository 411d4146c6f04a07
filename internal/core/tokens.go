package core

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/mr-tron/base58"

	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/registry"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// ListTokens reports every attached hardware token's state, per spec.md
// §4.L: New (factory-default PIN, never provisioned), Reused (has a
// plugin identity already, but not one this installation's registry
// knows about), Registered (matches a registry entry), or Orphaned (a
// registry entry exists for a serial that is not currently attached). No
// token session at all (plugin binaries unresolvable) is reported as an
// empty list rather than an error, since many users never attach a token.
func (c *Core) ListTokens(ctx context.Context) ([]TokenSummary, error) {
	var summaries []TokenSummary
	attached := map[domain.Serial]bool{}

	if c.TokenSession != nil {
		devices, err := c.TokenSession.ListDevices(ctx)
		if err != nil {
			return nil, err
		}
		for _, d := range devices {
			attached[d.Serial] = true
			state, err := c.classifyAttachedToken(ctx, d.Serial)
			if err != nil {
				return nil, err
			}
			summaries = append(summaries, TokenSummary{Serial: d.Serial, Model: d.Model, State: state})
		}
	}

	for _, entry := range c.Registry.All() {
		if entry.Type != registry.KeyTypeToken || attached[entry.Serial] {
			continue
		}
		if entry.Lifecycle == domain.Destroyed {
			continue
		}
		summaries = append(summaries, TokenSummary{Serial: entry.Serial, State: TokenStateOrphaned})
	}

	return summaries, nil
}

func (c *Core) classifyAttachedToken(ctx context.Context, serial domain.Serial) (TokenState, error) {
	if len(c.Registry.FindBySerial(serial)) > 0 {
		return TokenStateRegistered, nil
	}
	tag, err := c.TokenSession.CheckTokenHasIdentity(ctx, serial)
	if err != nil {
		return "", err
	}
	if tag != nil {
		return TokenStateReused, nil
	}
	hasDefault, err := c.TokenSession.HasDefaultPin(ctx, serial)
	if err != nil {
		return "", err
	}
	if hasDefault {
		return TokenStateNew, nil
	}
	return TokenStateReused, nil
}

// InitializeToken provisions a fresh token (changes its PIN, PUK, and
// management key away from PIV factory defaults) and generates its first
// identity slot. The recovery code is a Base58 encoding of the randomly
// generated numeric PUK: only its sha-256 hash is persisted, so it must be
// shown to the caller now or it cannot be recovered later.
func (c *Core) InitializeToken(ctx context.Context, serialRaw, newPinRaw, labelRaw string) (*InitializeTokenResult, error) {
	if c.TokenSession == nil {
		return nil, vaulterr.ErrTokenNotFound
	}
	serial, err := domain.NewSerial(serialRaw)
	if err != nil {
		return nil, err
	}
	newPin, err := domain.NewPin(newPinRaw)
	if err != nil {
		return nil, err
	}
	label, err := domain.NewLabel(labelRaw)
	if err != nil {
		return nil, err
	}

	pukDigits, err := randomNumericString(8)
	if err != nil {
		return nil, vaulterr.NewTokenError("initialize", serial.Raw(), err)
	}
	puk, err := domain.NewPin(pukDigits)
	if err != nil {
		return nil, err
	}
	recoveryCode := base58.Encode([]byte(pukDigits))

	if err := c.TokenSession.InitializeToken(ctx, serial, newPin, puk); err != nil {
		return nil, err
	}

	recipient, tag, err := c.TokenSession.GenerateIdentity(ctx, serial, newPin, touchPolicyAlways, label.String())
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256([]byte(recoveryCode))
	entry := &registry.KeyEntry{
		KeyId:            domain.NewKeyId(),
		Type:             registry.KeyTypeToken,
		Label:            label,
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
		Lifecycle:        domain.Active,
		PublicRecipient:  recipient,
		Serial:           serial,
		IdentityTag:      tag,
		LogicalSlot:      1,
		RecoveryCodeHash: hex.EncodeToString(hash[:]),
	}
	if err := c.Registry.Register(entry); err != nil {
		return nil, err
	}

	return &InitializeTokenResult{
		Serial:       serial,
		Slot:         1,
		Recipient:    recipient,
		IdentityTag:  tag,
		RecoveryCode: recoveryCode,
	}, nil
}

// randomNumericString generates n cryptographically random decimal digits.
func randomNumericString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	digits := make([]byte, n)
	for i, b := range buf {
		digits[i] = byte('0' + int(b)%10)
	}
	return string(digits), nil
}
