package manager

import "github.com/kireeti123/skyarclog/internal/chain"

// Signer stamps an entry with provenance before it is chained. The returned
// entry replaces the input; implementations may mutate in place and return
// the same map.
type Signer interface {
	Sign(entry chain.Entry) chain.Entry
}

// Encryptor transforms an entry's sensitive values before chaining and
// sink fan-out.
type Encryptor interface {
	Encrypt(entry chain.Entry) chain.Entry
}

// NoopSigner passes entries through unchanged.
type NoopSigner struct{}

func (NoopSigner) Sign(entry chain.Entry) chain.Entry { return entry }

// NoopEncryptor passes entries through unchanged.
type NoopEncryptor struct{}

func (NoopEncryptor) Encrypt(entry chain.Entry) chain.Entry { return entry }
