package local

// Can't explicitly flush directory changes on Windows.
func fsyncDir(dir string) error { return nil }

// Windows does not know ENOTSUP.
func syncNotSupported(err error) bool { return false }
