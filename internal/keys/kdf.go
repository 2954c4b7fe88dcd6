package keys

import (
	"crypto/rand"
	"time"

	sscrypt "github.com/elithrar/simple-scrypt"
	"golang.org/x/crypto/scrypt"

	"github.com/qinghai5060/sealio/internal/errors"
)

// saltLength is the length of the random salt for the password KDF.
const saltLength = 64

// Params are the parameters used for the key derivation function KDF().
type Params struct {
	N int
	R int
	P int
}

// DefaultParams are the default parameters used for Calibrate and KDF().
var DefaultParams = Params{
	N: sscrypt.DefaultParams.N,
	R: sscrypt.DefaultParams.R,
	P: sscrypt.DefaultParams.P,
}

// Calibrate determines new KDF parameters for the current hardware.
func Calibrate(timeout time.Duration, memory int) (Params, error) {
	defaultParams := sscrypt.Params{
		N:       DefaultParams.N,
		R:       DefaultParams.R,
		P:       DefaultParams.P,
		DKLen:   sscrypt.DefaultParams.DKLen,
		SaltLen: sscrypt.DefaultParams.SaltLen,
	}

	params, err := sscrypt.Calibrate(timeout, memory, defaultParams)
	if err != nil {
		return DefaultParams, errors.Wrap(err, "scrypt.Calibrate")
	}

	return Params{
		N: params.N,
		R: params.R,
		P: params.P,
	}, nil
}

// KDF derives a master key sized key from the password using the supplied
// parameters N, R and P and the salt.
func KDF(p Params, salt []byte, password string) (Key, error) {
	if len(salt) != saltLength {
		return nil, errors.Errorf("KDF() called with invalid salt bytes (len %d)", len(salt))
	}

	derived, err := scrypt.Key([]byte(password), salt, p.N, p.R, p.P, Size)
	if err != nil {
		return nil, errors.Wrap(err, "scrypt.Key")
	}

	return Key(derived), nil
}

// NewSalt returns new random salt bytes to use as the salt for KDF.
func NewSalt() ([]byte, error) {
	buf := make([]byte, saltLength)
	_, err := rand.Read(buf)
	return buf, errors.Wrap(err, "rand.Read")
}
