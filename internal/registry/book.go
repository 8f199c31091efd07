package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Well-known contract names.
const (
	ContractPool   = "comet"
	ContractAssetA = "BLND"
	ContractAssetB = "USDC"
)

// Networks the address book knows about.
var Networks = []string{"testnet", "mainnet", "futurenet"}

// Book maps contract names to their deployed IDs on one network. Files are
// YAML or JSON documents of the form {ids: {name: id}, hashes: {name: hash}}.
type Book struct {
	Network string            `yaml:"-"`
	IDs     map[string]string `yaml:"ids"`
	Hashes  map[string]string `yaml:"hashes,omitempty"`
}

// Path returns the address book file for network inside dir.
func Path(dir, network string) string {
	return filepath.Join(dir, network+".contracts.json")
}

// Load reads the address book for network from dir.
func Load(dir, network string) (*Book, error) {
	if !knownNetwork(network) {
		return nil, fmt.Errorf("unknown network %q", network)
	}
	path := Path(dir, network)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read address book: %w", err)
	}
	var book Book
	if err := yaml.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("parse address book %s: %w", path, err)
	}
	if book.IDs == nil {
		book.IDs = map[string]string{}
	}
	book.Network = network
	return &book, nil
}

// ContractID returns the ID registered under name.
func (b *Book) ContractID(name string) (string, error) {
	id, ok := b.IDs[name]
	if !ok || id == "" {
		return "", fmt.Errorf("contract %q not in %s address book", name, b.Network)
	}
	return id, nil
}

// Names lists the registered contract names.
func (b *Book) Names() []string {
	names := make([]string, 0, len(b.IDs))
	for name := range b.IDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PoolContracts resolves the pool and its two reserve assets.
func (b *Book) PoolContracts() (pool, assetA, assetB string, err error) {
	if pool, err = b.ContractID(ContractPool); err != nil {
		return "", "", "", err
	}
	if assetA, err = b.ContractID(ContractAssetA); err != nil {
		return "", "", "", err
	}
	if assetB, err = b.ContractID(ContractAssetB); err != nil {
		return "", "", "", err
	}
	return pool, assetA, assetB, nil
}

func knownNetwork(network string) bool {
	for _, n := range Networks {
		if n == network {
			return true
		}
	}
	return false
}
