package eval

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/wyhash"
	"github.com/zeebo/xxh3"
	"lukechampine.com/blake3"

	"github.com/leengari/tabflow/internal/expr"
	"github.com/leengari/tabflow/internal/table"
)

// bits of entropy carried by one output character, per encoding
var encodingEntropy = map[expr.HashEncoding]float64{
	expr.EncodingHex:      4,
	expr.EncodingB64:      6,
	expr.EncodingB64Alnum: 5.954, // log2(62)
	// Upper-casing folds the two base64 letter cases together.
	expr.EncodingB64AlnumUpper: 5.170, // log2(36)
}

func evalHash(n *expr.Hash, t *table.Table) (*table.Column, error) {
	in, err := Evaluate(n.Value, t)
	if err != nil {
		return nil, err
	}
	out := table.NewColumn("", table.TypeString, in.Len())
	for i := 0; i < in.Len(); i++ {
		if in.IsNull(i) {
			out.AppendNull()
			continue
		}
		digest := computeDigest(n.Algo, table.FormatValue(in.Values[i]))
		encoded := encodeDigest(digest, n.Encoding)
		out.Append(truncateToBits(encoded, n.Encoding, n.Bits))
	}
	return out, nil
}

func computeDigest(algo expr.HashAlgo, s string) []byte {
	switch algo {
	case expr.HashSHA256:
		d := sha256.Sum256([]byte(s))
		return d[:]
	case expr.HashSHA512:
		d := sha512.Sum512([]byte(s))
		return d[:]
	case expr.HashMD5:
		d := md5.Sum([]byte(s))
		return d[:]
	case expr.HashBlake3:
		d := blake3.Sum256([]byte(s))
		return d[:]
	case expr.HashWyhash:
		return u64Bytes(wyhash.HashString(s, 0))
	case expr.HashXXH3:
		return u64Bytes(xxh3.HashString(s))
	case expr.HashXXH64:
		return u64Bytes(xxhash.Sum64String(s))
	}
	return nil
}

func u64Bytes(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func encodeDigest(digest []byte, encoding expr.HashEncoding) string {
	switch encoding {
	case expr.EncodingHex:
		return hex.EncodeToString(digest)
	case expr.EncodingB64:
		return base64.StdEncoding.EncodeToString(digest)
	case expr.EncodingB64Alnum, expr.EncodingB64AlnumUpper:
		encoded := base64.StdEncoding.EncodeToString(digest)
		var sb strings.Builder
		for _, r := range encoded {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				sb.WriteRune(r)
			}
		}
		if encoding == expr.EncodingB64AlnumUpper {
			return strings.ToUpper(sb.String())
		}
		return sb.String()
	}
	return hex.EncodeToString(digest)
}

// truncateToBits cuts the encoded digest to the shortest prefix carrying at
// least bits of entropy. Asking for more entropy than the digest holds keeps
// the full output; that is not an error.
func truncateToBits(encoded string, encoding expr.HashEncoding, bits int) string {
	if bits <= 0 {
		return encoded
	}
	perChar := encodingEntropy[encoding]
	if perChar == 0 {
		perChar = 4
	}
	chars := int(math.Ceil(float64(bits) / perChar))
	if chars < len(encoded) {
		return encoded[:chars]
	}
	return encoded
}
