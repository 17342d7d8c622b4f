// ABOUTME: Broadcast sink state definitions
// ABOUTME: Discovery and synchronization states in the order they are entered
package sink

// State is the discovery and synchronization state of the sink
type State int

const (
	StateWaitControllerReady State = iota
	StateWaitBroadcastAdvertisement
	StateWaitConfigurationAndGroupInfo
	StateWaitGroupSyncEstablished
	StateStreaming
	StateIdle
)

func (s State) String() string {
	switch s {
	case StateWaitControllerReady:
		return "waiting for controller"
	case StateWaitBroadcastAdvertisement:
		return "scanning for broadcast"
	case StateWaitConfigurationAndGroupInfo:
		return "waiting for BASE and BIGInfo"
	case StateWaitGroupSyncEstablished:
		return "syncing to BIG"
	case StateStreaming:
		return "streaming"
	case StateIdle:
		return "idle"
	default:
		return "unknown"
	}
}
