package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/engine"
	"github.com/qinghai5060/sealio/internal/envelope"
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/keys"
	"github.com/qinghai5060/sealio/internal/textfile"
)

// kdfName is the only key derivation function the file format knows.
const kdfName = "scrypt"

// sealKeyed fills hdr and params with fresh key material for one stream.
// With a keyfile the master key never touches the file: a random salt and
// the engine name derive a per-stream subkey, and the master key id in the
// header lets decryption tell a wrong keyfile from a damaged file. Without
// a keyfile the key is derived from password, with the KDF parameters and
// salt recorded in the header.
func sealKeyed(hdr *envelope.Header, params *engine.Params, master keys.Key, password string) error {
	salt, err := keys.NewSalt()
	if err != nil {
		return err
	}

	if master != nil {
		sub, err := keys.Subkey(master, salt, hdr.Engine)
		if err != nil {
			return err
		}
		id := master.ID()
		hdr.KeyID = &id
		hdr.Salt = salt
		params.Key = sub
		return nil
	}

	p, err := keys.ActiveParams()
	if err != nil {
		return err
	}
	fileKey, err := keys.KDF(p, salt, password)
	if err != nil {
		return err
	}
	id := fileKey.ID()
	hdr.KDF = &envelope.KDF{Name: kdfName, N: p.N, R: p.R, P: p.P, Salt: salt}
	hdr.KeyID = &id
	params.Key = fileKey
	return nil
}

// openKeyed recovers the key for hdr, either by deriving the subkey from
// the master key or by running the recorded KDF over password. The key id
// in the header distinguishes a wrong password or keyfile from a damaged
// file before any ciphertext is read.
func openKeyed(hdr *envelope.Header, params *engine.Params, master keys.Key, password string) error {
	switch {
	case hdr.KDF != nil:
		if hdr.KDF.Name != kdfName {
			return envelope.InvalidFileError{Message: fmt.Sprintf("unsupported KDF %q", hdr.KDF.Name)}
		}
		fileKey, err := keys.KDF(keys.Params{N: hdr.KDF.N, R: hdr.KDF.R, P: hdr.KDF.P}, hdr.KDF.Salt, password)
		if err != nil {
			return err
		}
		if hdr.KeyID != nil && fileKey.ID() != *hdr.KeyID {
			return keys.ErrWrongPassword
		}
		params.Key = fileKey

	case len(hdr.Salt) > 0:
		if master == nil {
			return errors.Fatal("this file was sealed with a keyfile, please specify it with --keyfile")
		}
		if hdr.KeyID != nil && master.ID() != *hdr.KeyID {
			return keys.ErrWrongKey
		}
		sub, err := keys.Subkey(master, hdr.Salt, hdr.Engine)
		if err != nil {
			return err
		}
		params.Key = sub

	default:
		return envelope.InvalidFileError{Message: "header carries no key derivation data"}
	}

	return nil
}

// resolveOpenKey gathers what openKeyed needs for hdr, prompting for the
// password when nothing was preconfigured.
func resolveOpenKey(ctx context.Context, gopts GlobalOptions, hdr *envelope.Header, params *engine.Params) error {
	var (
		master   keys.Key
		password string
	)

	switch {
	case hdr.KDF != nil:
		pwd, err := ReadPassword(ctx, gopts, "enter password: ")
		if err != nil {
			return err
		}
		password = pwd

	case len(hdr.Salt) > 0:
		if gopts.Keyfile == "" && gopts.masterKey == nil {
			return errors.Fatal("this file was sealed with a keyfile, please specify it with --keyfile")
		}
		m, err := loadMasterKey(ctx, gopts)
		if err != nil {
			return err
		}
		master = m
	}

	return openKeyed(hdr, params, master, password)
}

// loadMasterKey returns the raw key from $SEALIO_KEY if one is set, and
// otherwise opens the keyfile named by gopts, asking for its password when
// it was not preconfigured.
func loadMasterKey(ctx context.Context, gopts GlobalOptions) (keys.Key, error) {
	if gopts.masterKey != nil {
		return gopts.masterKey, nil
	}

	kf, err := keys.Load(gopts.Keyfile)
	if err != nil {
		// flattened, a missing keyfile must not count as a missing input file
		return nil, errors.Fatal(fmt.Sprintf("unable to load keyfile: %v", err))
	}

	password, err := ReadPassword(ctx, gopts, "enter password for keyfile: ")
	if err != nil {
		return nil, err
	}

	master, err := kf.Open(password)
	if err != nil {
		return nil, err
	}

	debug.Log("opened keyfile %v, key id %v", gopts.Keyfile, master.ID())
	return master, nil
}

// loadIdentities reads age identity files, skipping comments and blank
// lines. The textual identities go into the engine parameters as they are,
// parsing them is the engine's business.
func loadIdentities(files []string) ([]string, error) {
	var ids []string
	for _, file := range files {
		data, err := textfile.Read(file)
		if err != nil {
			return nil, errors.Fatal(fmt.Sprintf("unable to read identity file: %v", err))
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			ids = append(ids, line)
		}
	}
	return ids, nil
}
