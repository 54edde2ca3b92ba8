package ethutil

import (
	cid "github.com/ipfs/go-cid"
	mc "github.com/multiformats/go-multicodec"
	mh "github.com/multiformats/go-multihash"
)

var pref = cid.Prefix{
	Version:  1,
	Codec:    uint64(mc.Raw),
	MhType:   mh.SHA2_256,
	MhLength: -1, // default length
}

// ContentURI computes the ipfs:// URI of raw content without talking to an
// IPFS node. The pinning service is expected to produce the same CID.
func ContentURI(data []byte) (string, error) {
	c, err := pref.Sum(data)
	if err != nil {
		return "", err
	}

	return "ipfs://" + c.String(), nil
}
