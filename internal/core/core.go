package core

import (
	"github.com/barqly/barqly-vault/internal/ageio"
	"github.com/barqly/barqly-vault/internal/bootstrap"
	"github.com/barqly/barqly-vault/internal/registry"
	"github.com/barqly/barqly-vault/internal/token"
)

// Core composes every durable store and service into the operation
// surface spec.md §4.L names. Callers outside this module construct
// exactly one Core per process (per the concurrency model's single-writer
// discipline on the registry and manifest files) and call its methods
// directly; Core holds no state beyond what Open persists.
type Core struct {
	Registry     *registry.Store
	Vaults       *VaultStore
	Passphrase   *ageio.PassphraseKeyService
	Encryptor    *ageio.Encryptor
	TokenSession *token.Session // nil when no hardware token plugin is resolvable
	Bootstrap    *bootstrap.Result
}

// Open runs the startup bootstrap sequence (device identity, registry
// reconciliation against on-disk manifests) and loads the vault index,
// then wires the key and encryption services on top. A hardware token
// session is attempted but its absence is not fatal: TokenSession is left
// nil and token-dependent operations report ErrTokenNotFound individually
// instead of failing Open for users who have no token at all.
func Open(machineLabel string) (*Core, error) {
	bootResult, err := bootstrap.Reconcile(machineLabel)
	if err != nil {
		return nil, err
	}

	vaults, err := LoadVaultStore()
	if err != nil {
		return nil, err
	}

	var tokenSession *token.Session
	if s, err := token.NewSession(); err == nil {
		tokenSession = s
	}

	return &Core{
		Registry:     bootResult.Store,
		Vaults:       vaults,
		Passphrase:   ageio.NewPassphraseKeyService(bootResult.Store),
		Encryptor:    ageio.NewEncryptor(bootResult.Store, tokenSession),
		TokenSession: tokenSession,
		Bootstrap:    bootResult,
	}, nil
}
