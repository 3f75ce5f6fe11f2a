// Package codec turns cached values into bytes and back. The cache itself keeps
// values in memory as-is; codecs are used where values cross a byte boundary,
// such as source.Remote reading from a provider.Provider.
package codec

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
