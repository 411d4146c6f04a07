package ageio

import "testing"

func TestValidatePassphrasePolicy(t *testing.T) {
	cases := []struct {
		name    string
		pass    string
		wantErr bool
	}{
		{"too short", "abc123", true},
		{"no digit", "abcdefghijklmnop", true},
		{"no letter", "123456789012345", true},
		{"meets policy", "correcthorse1battery", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidatePassphrasePolicy(c.pass)
			if (err != nil) != c.wantErr {
				t.Errorf("ValidatePassphrasePolicy(%q) error = %v, wantErr %v", c.pass, err, c.wantErr)
			}
		})
	}
}

func TestProtectAndUnlockRoundTrip(t *testing.T) {
	_, privateKey, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	defer privateKey.Close()

	blob, err := ProtectPrivateKey(privateKey.Open(), "correcthorse1battery")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unlocked, err := UnlockPrivateKey(blob, "correcthorse1battery")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer unlocked.Close()

	if unlocked.Open() != privateKey.Open() {
		t.Error("unlocked private key does not match the original")
	}
}

func TestUnlockPrivateKeyWrongPassphrase(t *testing.T) {
	_, privateKey, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	defer privateKey.Close()

	blob, err := ProtectPrivateKey(privateKey.Open(), "correcthorse1battery")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := UnlockPrivateKey(blob, "wrongpassphrase1234"); err == nil {
		t.Error("expected an error unlocking with the wrong passphrase")
	}
}
