package paths

// Target says where an upload lands. It is either a HostPush or a PeerUpload.
type Target interface {
	isTarget()
}

// HostPush is the host making a file available to one paired peer.
type HostPush struct {
	SessionID string
}

// PeerUpload is a peer sending a file to the host.
type PeerUpload struct {
	DeviceName string
}

func (HostPush) isTarget()   {}
func (PeerUpload) isTarget() {}

// Scope identifies the caller of a listing, delete, download or zip.
// An empty SessionID means the host acting globally.
type Scope struct {
	SessionID  string
	DeviceName string
}

// IsHost reports whether the scope covers every store.
func (s Scope) IsHost() bool {
	return s.SessionID == ""
}
