package common

// FilterKnownNetworks drops every stored profile that is also present
// in the visible list, matching on SSID and security type. The client
// renders the remainder as an "out of range" section, so a network must
// never appear in both lists at once.
func FilterKnownNetworks(known []KnownNetworkData, visible []WifiNetworkData) []KnownNetworkData {
	type key struct{ ssid, security string }

	seen := make(map[key]struct{}, len(visible))
	for _, n := range visible {
		seen[key{n.SSID, n.Security}] = struct{}{}
	}

	out := make([]KnownNetworkData, 0, len(known))
	for _, k := range known {
		if _, ok := seen[key{k.SSID, k.Security}]; ok {
			continue
		}
		out = append(out, k)
	}
	return out
}
