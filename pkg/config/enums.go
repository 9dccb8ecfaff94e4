package config

// SchedulerMode is the value of -s/--scheduler. It is validated and
// reported in the startup log; the runtime does not read it, and its
// worker pool always blocks on the waiting queue's condition variable
// whichever mode is chosen.
type SchedulerMode string

const (
	SchedulerImmediate   SchedulerMode = "immediate"
	SchedulerBlocking    SchedulerMode = "blocking"
	SchedulerNonblocking SchedulerMode = "nonblocking"
)

// IsValid reports whether m is one of the three recognised scheduler modes.
func (m SchedulerMode) IsValid() bool {
	switch m {
	case SchedulerImmediate, SchedulerBlocking, SchedulerNonblocking:
		return true
	default:
		return false
	}
}

// Theme is the value of -t/--theme. It is validated and stored in Config;
// no output of the daemon is coloured according to it.
type Theme string

const (
	ThemeNone  Theme = "none"
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// IsValid reports whether t is one of the three recognised themes.
func (t Theme) IsValid() bool {
	switch t {
	case ThemeNone, ThemeLight, ThemeDark:
		return true
	default:
		return false
	}
}

// BrokerKind selects the pluggable transport implementation.
type BrokerKind string

const (
	BrokerMemory BrokerKind = "memory"
	BrokerMQTT   BrokerKind = "mqtt"
	BrokerKafka  BrokerKind = "kafka"
)

// IsValid reports whether k is one of the three recognised broker kinds.
func (k BrokerKind) IsValid() bool {
	switch k {
	case BrokerMemory, BrokerMQTT, BrokerKafka:
		return true
	default:
		return false
	}
}

// BarrierKind selects the BarrierSequenceSection distance metric used by
// the reuse job factory.
type BarrierKind string

const (
	BarrierSphere  BarrierKind = "sphere"
	BarrierCapsule BarrierKind = "capsule"
)

// IsValid reports whether k is one of the two recognised barrier kinds.
func (k BarrierKind) IsValid() bool {
	return k == BarrierSphere || k == BarrierCapsule
}

// BarrierUpdatePolicy selects how a BarrierSequence reacts to a changed
// human sample.
type BarrierUpdatePolicy string

const (
	BarrierKeepOne          BarrierUpdatePolicy = "keep_one"
	BarrierAddWhenNecessary BarrierUpdatePolicy = "add_when_necessary"
	BarrierAddWhenDifferent BarrierUpdatePolicy = "add_when_different"
)

// IsValid reports whether p is one of the three recognised update policies.
func (p BarrierUpdatePolicy) IsValid() bool {
	switch p {
	case BarrierKeepOne, BarrierAddWhenNecessary, BarrierAddWhenDifferent:
		return true
	default:
		return false
	}
}

// JobVariant selects whether the runtime's look-ahead factory produces
// discard or reuse jobs.
type JobVariant string

const (
	JobVariantDiscard JobVariant = "discard"
	JobVariantReuse   JobVariant = "reuse"
)

// IsValid reports whether v is one of the two recognised job variants.
func (v JobVariant) IsValid() bool {
	return v == JobVariantDiscard || v == JobVariantReuse
}
