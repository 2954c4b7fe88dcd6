package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/errors"
)

// ErrWrongPassword is returned when a keyfile cannot be unsealed with the
// given password.
var ErrWrongPassword = errors.Fatal("wrong password for keyfile")

// ErrWrongKey is returned when a key does not match the key id a sealed
// file was encrypted with.
var ErrWrongKey = errors.Fatal("key does not match the key id of the file")

// A Keyfile is a master key sealed with a password derived key, stored as
// JSON together with the KDF parameters needed to derive that key again.
type Keyfile struct {
	Created  time.Time `json:"created"`
	Username string    `json:"username"`
	Hostname string    `json:"hostname"`

	KDF  string `json:"kdf"`
	N    int    `json:"N"`
	R    int    `json:"r"`
	P    int    `json:"p"`
	Salt []byte `json:"salt"`
	Data []byte `json:"data"`
}

// KDFParams tracks the parameters used to seal new keyfiles. If not set,
// they are calibrated on the first call to Seal().
var KDFParams *Params

var (
	// KDFTimeout specifies the maximum runtime for the KDF calibration.
	KDFTimeout = 500 * time.Millisecond

	// KDFMemory limits the memory in MiB the KDF is allowed to use.
	KDFMemory = 60
)

// ActiveParams returns the KDF parameters new keys are sealed with,
// calibrating them on first use.
func ActiveParams() (Params, error) {
	if KDFParams == nil {
		p, err := Calibrate(KDFTimeout, KDFMemory)
		if err != nil {
			return Params{}, errors.Wrap(err, "Calibrate")
		}

		KDFParams = &p
		debug.Log("calibrated KDF parameters are %v", p)
	}

	return *KDFParams, nil
}

// Seal wraps master into a keyfile protected by password.
func Seal(master Key, password string) (*Keyfile, error) {
	if !master.Valid() {
		return nil, errors.New("invalid master key")
	}

	p, err := ActiveParams()
	if err != nil {
		return nil, err
	}

	kf := &Keyfile{
		Created: time.Now(),
		KDF:     "scrypt",
		N:       p.N,
		R:       p.R,
		P:       p.P,
	}

	hn, err := os.Hostname()
	if err == nil {
		kf.Hostname = hn
	}

	usr, err := user.Current()
	if err == nil {
		kf.Username = usr.Username
	}

	kf.Salt, err = NewSalt()
	if err != nil {
		return nil, errors.Wrap(err, "NewSalt")
	}

	sealing, err := KDF(Params{N: kf.N, R: kf.R, P: kf.P}, kf.Salt, password)
	if err != nil {
		return nil, err
	}

	aead, err := keyfileAEAD(sealing)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "rand.Read")
	}

	kf.Data = aead.Seal(nonce, nonce, master, nil)

	return kf, nil
}

// Open unseals the master key with password.
func (k *Keyfile) Open(password string) (Key, error) {
	if k.KDF != "scrypt" {
		return nil, errors.Errorf("unsupported KDF %q", k.KDF)
	}

	sealing, err := KDF(Params{N: k.N, R: k.R, P: k.P}, k.Salt, password)
	if err != nil {
		return nil, err
	}

	aead, err := keyfileAEAD(sealing)
	if err != nil {
		return nil, err
	}

	if len(k.Data) < aead.NonceSize() {
		return nil, errors.New("keyfile data too short")
	}

	nonce, ciphertext := k.Data[:aead.NonceSize()], k.Data[aead.NonceSize():]
	master, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		debug.Log("unsealing keyfile failed: %v", err)
		return nil, ErrWrongPassword
	}

	if !Key(master).Valid() {
		return nil, errors.New("keyfile holds invalid key material")
	}

	return Key(master), nil
}

// keyfileAEAD is the single-shot AES-256-GCM that seals master keys. A
// keyfile is one small blob, the streaming engines have no business here.
func keyfileAEAD(sealing Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(sealing)
	if err != nil {
		return nil, errors.Wrap(err, "aes.NewCipher")
	}
	return cipher.NewGCM(block)
}

// Load reads a keyfile from path.
func Load(path string) (*Keyfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	kf := &Keyfile{}
	if err := json.Unmarshal(data, kf); err != nil {
		return nil, errors.Wrap(err, "Unmarshal")
	}
	return kf, nil
}

// Save writes the keyfile to path, readable only by the current user. An
// existing file is never overwritten.
func (k *Keyfile) Save(path string) error {
	buf, err := json.Marshal(k)
	if err != nil {
		return errors.Wrap(err, "Marshal")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}

	_, err = f.Write(buf)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (k *Keyfile) String() string {
	if k == nil {
		return "<Keyfile nil>"
	}
	return fmt.Sprintf("<Keyfile of %s@%s, created on %s>", k.Username, k.Hostname, k.Created)
}
