package session

import "strings"

// role selects which side of a channel a Session plays.
type role int

const (
	rolePublisher role = iota
	roleSubscriber
)

// parseTarget matches the upgrade request's path against the
// "/<channel>/pub" and "/<channel>/sub" suffixes described in §6 of the
// specification. It reports the parsed role and channel name, or ok=false
// if the path doesn't match either suffix or the channel name contains a
// "/" (both cases must produce a 404 per §4.4 transition 1).
func parseTarget(path string) (r role, channel string, ok bool) {
	const (
		subSuffix = "/sub"
		pubSuffix = "/pub"
	)

	var suffix string
	switch {
	case strings.HasSuffix(path, subSuffix):
		r = roleSubscriber
		suffix = subSuffix
	case strings.HasSuffix(path, pubSuffix):
		r = rolePublisher
		suffix = pubSuffix
	default:
		return 0, "", false
	}

	if len(path) < len(suffix)+1 || path[0] != '/' {
		return 0, "", false
	}

	channel = path[1 : len(path)-len(suffix)]
	if strings.Contains(channel, "/") {
		return 0, "", false
	}

	return r, channel, true
}
