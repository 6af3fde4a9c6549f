package intent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ovs-container-lab/vport-intents/pkg/flowkey"
)

// Version is the intent format version understood by the intent server
const Version = "1.0"

// ErrIntentService wraps every failure reported by an intent backend
var ErrIntentService = errors.New("intent service failure")

// Intent asks the intent server to steer traffic matching Match from the
// source termination point (stp) to the target termination point (ttp)
type Intent struct {
	Version string        `json:"version"`
	TTPDPID string        `json:"ttp_dpid"`
	TTPPort uint32        `json:"ttp_port"`
	STPDPID string        `json:"stp_dpid"`
	STPPort uint32        `json:"stp_port"`
	Match   flowkey.Match `json:"match"`
}

func (i Intent) String() string {
	return fmt.Sprintf("%s:%d -> %s:%d [%s]", i.STPDPID, i.STPPort, i.TTPDPID, i.TTPPort, flowkey.Encode(i.Match))
}

// Service installs and removes intents. The service is the only authority
// for intent identifiers.
type Service interface {
	Submit(ctx context.Context, in Intent) (uuid.UUID, error)
	Withdraw(ctx context.Context, id uuid.UUID) error
}

func serviceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrIntentService, op, err)
}
