package enums

// ObservationChannel names the path through which a payment status was observed.
type ObservationChannel string

const (
	ChannelPoller   ObservationChannel = "poller"
	ChannelListener ObservationChannel = "listener"
	ChannelWebhook  ObservationChannel = "webhook"
	ChannelSweep    ObservationChannel = "sweep"
)

// String implements fmt.Stringer.
func (c ObservationChannel) String() string {
	return string(c)
}
