package keys

// Cheap scrypt parameters so tests don't spend their time in the KDF.
var testKDFParams = Params{
	N: 128,
	R: 1,
	P: 1,
}

type logger interface {
	Logf(format string, args ...interface{})
}

// TestUseLowSecurityKDFParameters switches sealing to throwaway KDF
// parameters. Only for tests, the resulting keyfiles offer no protection.
func TestUseLowSecurityKDFParameters(t logger) {
	t.Logf("using low-security KDF parameters for test")
	KDFParams = &testKDFParams
}
