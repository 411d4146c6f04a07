package token

import (
	"context"

	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/tokenplugin"
)

// GenerateIdentity drives the plugin CLI over a PTY to create a new PIV
// identity slot on the token and returns its age recipient and identity
// tag.
func (s *Session) GenerateIdentity(ctx context.Context, serial domain.Serial, pin domain.Pin, touchPolicy, label string) (domain.Recipient, domain.IdentityTag, error) {
	var recipient domain.Recipient
	var tag domain.IdentityTag
	err := withSession(func() error {
		var err error
		recipient, tag, err = tokenplugin.GenerateIdentity(ctx, s.pluginPath, serial, pin, touchPolicy, label)
		return err
	})
	return recipient, tag, err
}

// GetIdentityForSerial looks up the plugin identity tag already provisioned
// on a token, non-interactively.
func (s *Session) GetIdentityForSerial(ctx context.Context, serial domain.Serial) (domain.IdentityTag, bool, error) {
	var tag domain.IdentityTag
	var ok bool
	err := withSession(func() error {
		var err error
		tag, ok, err = tokenplugin.GetIdentityForSerial(ctx, s.pluginPath, serial)
		return err
	})
	return tag, ok, err
}

// CheckTokenHasIdentity reports whether a token already has a provisioned
// identity, returning the tag if so.
func (s *Session) CheckTokenHasIdentity(ctx context.Context, serial domain.Serial) (*domain.IdentityTag, error) {
	tag, ok, err := s.GetIdentityForSerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &tag, nil
}
