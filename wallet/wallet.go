package wallet

import (
	"context"
	"fmt"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

// MinCollateral is the smallest pure-ADA utxo SimpleWallet offers as collateral.
const MinCollateral = 5 * ledger.LovelacePerADA

// DefaultLookahead is the number of external addresses SimpleWallet treats as used.
const DefaultLookahead = 5

// Wallet is the signing party of a transaction, in the shape of a CIP-30
// browser wallet.
type Wallet interface {
	UsedAddresses(ctx context.Context) ([]ledger.Address, error)
	UnusedAddresses(ctx context.Context) ([]ledger.Address, error)
	ChangeAddress(ctx context.Context) (ledger.Address, error)
	Utxos(ctx context.Context) ([]*ledger.TxInput, error)
	Collateral(ctx context.Context) ([]*ledger.TxInput, error)
	IsOwnAddress(ctx context.Context, addr ledger.Address) (bool, error)
	Sign(ctx context.Context, tx *ledger.Tx) ([]ledger.Signature, error)
}

// UtxoSource answers utxo queries by address. network.Network satisfies it.
type UtxoSource interface {
	GetUtxos(ctx context.Context, addr ledger.Address) ([]*ledger.TxInput, error)
}

// Options tunes a SimpleWallet.
type Options struct {
	Account   uint32
	Lookahead int
}

// SimpleWallet is a software wallet over HD keys.
type SimpleWallet struct {
	keys     *HDKeys
	source   UtxoSource
	external []*KeyPair
	change   *KeyPair
	unused   *KeyPair
	byHash   map[ledger.PubKeyHash]*KeyPair
}

var _ Wallet = (*SimpleWallet)(nil)

// NewSimpleWallet derives the wallet's addresses from seed. source may be nil
// for a wallet that only signs.
func NewSimpleWallet(seed []byte, network *NetworkConfig, source UtxoSource, opts *Options) (*SimpleWallet, error) {
	keys, err := NewHDKeys(seed, network)
	if err != nil {
		return nil, err
	}
	o := Options{Lookahead: DefaultLookahead}
	if opts != nil {
		o.Account = opts.Account
		if opts.Lookahead > 0 {
			o.Lookahead = opts.Lookahead
		}
	}

	w := &SimpleWallet{
		keys:   keys,
		source: source,
		byHash: make(map[ledger.PubKeyHash]*KeyPair),
	}
	for i := 0; i <= o.Lookahead; i++ {
		kp, err := keys.Derive(o.Account, ExternalRole, uint32(i))
		if err != nil {
			return nil, err
		}
		w.byHash[kp.KeyHash] = kp
		if i == o.Lookahead {
			w.unused = kp
		} else {
			w.external = append(w.external, kp)
		}
	}
	w.change, err = keys.Derive(o.Account, ChangeRole, 0)
	if err != nil {
		return nil, err
	}
	w.byHash[w.change.KeyHash] = w.change
	return w, nil
}

// NewSimpleWalletFromMnemonic is NewSimpleWallet for a BIP39 phrase.
func NewSimpleWalletFromMnemonic(mnemonic, passphrase string, network *NetworkConfig, source UtxoSource, opts *Options) (*SimpleWallet, error) {
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	return NewSimpleWallet(seed, network, source, opts)
}

// Network returns the wallet's network configuration.
func (w *SimpleWallet) Network() *NetworkConfig { return w.keys.Network() }

// Address returns the first external address.
func (w *SimpleWallet) Address() ledger.Address { return w.external[0].Address }

// UsedAddresses returns the external addresses followed by the change address.
func (w *SimpleWallet) UsedAddresses(ctx context.Context) ([]ledger.Address, error) {
	out := make([]ledger.Address, 0, len(w.external)+1)
	for _, kp := range w.external {
		out = append(out, kp.Address)
	}
	return append(out, w.change.Address), nil
}

// UnusedAddresses returns the next external address past the lookahead.
func (w *SimpleWallet) UnusedAddresses(ctx context.Context) ([]ledger.Address, error) {
	return []ledger.Address{w.unused.Address}, nil
}

// ChangeAddress returns the change address.
func (w *SimpleWallet) ChangeAddress(ctx context.Context) (ledger.Address, error) {
	return w.change.Address, nil
}

// Utxos gathers utxos at every used address.
func (w *SimpleWallet) Utxos(ctx context.Context) ([]*ledger.TxInput, error) {
	if w.source == nil {
		return nil, ErrNoUtxoSource
	}
	addrs, _ := w.UsedAddresses(ctx)
	var out []*ledger.TxInput
	for _, a := range addrs {
		utxos, err := w.source.GetUtxos(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("wallet: utxos at %s: %w", a, err)
		}
		out = append(out, utxos...)
	}
	return out, nil
}

// Collateral returns the first pure-ADA utxo of at least MinCollateral.
func (w *SimpleWallet) Collateral(ctx context.Context) ([]*ledger.TxInput, error) {
	utxos, err := w.Utxos(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range utxos {
		if u.Output.Value.IsPureADA() && u.Output.Value.Lovelace >= MinCollateral {
			return []*ledger.TxInput{u}, nil
		}
	}
	return nil, nil
}

// IsOwnAddress reports whether the address's payment key belongs to the wallet.
func (w *SimpleWallet) IsOwnAddress(ctx context.Context, addr ledger.Address) (bool, error) {
	pkh, ok := addr.PubKeyHash()
	if !ok {
		return false, nil
	}
	_, own := w.byHash[pkh]
	return own, nil
}

// Sign returns signatures over the tx id from every wallet key the tx requires.
func (w *SimpleWallet) Sign(ctx context.Context, tx *ledger.Tx) ([]ledger.Signature, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: tx", ledger.ErrNilParam)
	}
	id := tx.ID()
	var sigs []ledger.Signature
	for _, pkh := range tx.RequiredKeyHashes() {
		kp, ok := w.byHash[pkh]
		if !ok {
			continue
		}
		s, err := ledger.SignTxID(id, kp.PrivateKey)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, s)
	}
	return sigs, nil
}
