package expr

// HashAlgo enumerates the supported hash algorithms.
type HashAlgo string

const (
	HashSHA256 HashAlgo = "sha256"
	HashSHA512 HashAlgo = "sha512"
	HashMD5    HashAlgo = "md5"
	HashBlake3 HashAlgo = "blake3"
	HashWyhash HashAlgo = "wyhash" // non-cryptographic, 64-bit
	HashXXH3   HashAlgo = "xxh3"   // non-cryptographic, 64-bit
	HashXXH64  HashAlgo = "xxh64"  // non-cryptographic, 64-bit
)

// HashEncoding enumerates the output encodings.
type HashEncoding string

const (
	EncodingHex HashEncoding = "hex"
	EncodingB64 HashEncoding = "base64"
	// EncodingB64Alnum strips non-alphanumeric characters from the base64
	// output, giving identifier-safe digests.
	EncodingB64Alnum HashEncoding = "base64_alphanumeric"
	// EncodingB64AlnumUpper additionally upper-cases the result.
	EncodingB64AlnumUpper HashEncoding = "base64_alphanumeric_upper"
)

// Hash digests the string form of Value per row.
//
// Bits, when positive, truncates the encoded output to the shortest prefix
// carrying at least that many bits of entropy given the encoding's per-
// character entropy. Requesting more bits than the digest provides keeps the
// full output, it is not an error.
type Hash struct {
	Algo     HashAlgo
	Encoding HashEncoding
	Bits     int
	Value    Expr
}

func (*Hash) Kind() string { return "hash" }
