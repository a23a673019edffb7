package graph

import "strings"

const assetRefPrefix = "{{asset:"
const assetRefSuffix = "}}"

// AssetRef builds a placeholder reference to an out-of-band asset at the
// given relative path. The asset materializer rewrites these placeholders to
// stable deployment locations; the relative path doubles as the on-disk
// layout, so it must be derived from the artifact key, never from content.
func AssetRef(relPath string) string {
	return assetRefPrefix + relPath + assetRefSuffix
}

// ParseAssetRef extracts the relative path from a placeholder reference.
func ParseAssetRef(s string) (string, bool) {
	if !strings.HasPrefix(s, assetRefPrefix) || !strings.HasSuffix(s, assetRefSuffix) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(s, assetRefPrefix), assetRefSuffix), true
}
