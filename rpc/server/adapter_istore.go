package server

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/vaultkv/lib/store"
	"github.com/ValentinKolb/vaultkv/rpc/common"
)

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, store store.IStore) *common.Message {
	// Check for nil store
	if store == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTKVSet:
		err := store.Set(req.Key, req.Value)
		return common.NewSetResponse(err)
	case common.MsgTKVGet:
		val, ok, err := store.Get(req.Key)
		return common.NewGetResponse(val, ok, err)
	case common.MsgTKVHas:
		ok, err := store.Has(req.Key)
		return common.NewHasResponse(ok, err)
	case common.MsgTCustom:
		return adapter.handleCustom(req, store)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC IStoreAdapter - Unsuported message type: %s", req.MsgType),
		)
	}
}

// handleCustom serves the small set of operations that don't fit the Set/Get/Has
// shape. Currently only GetDBInfo, keyed by the string in req.Meta.
func (adapter *iStoreServerAdapterImpl) handleCustom(req *common.Message, store store.IStore) *common.Message {
	switch string(req.Meta) {
	case customOpGetDBInfo:
		info, err := store.GetDBInfo()
		if err != nil {
			return common.NewErrorResponse(err.Error())
		}
		meta, err := json.Marshal(info)
		if err != nil {
			return common.NewErrorResponse(fmt.Sprintf("failed to marshal db info: %v", err))
		}
		return common.NewCustomResponse(meta, nil)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC IStoreAdapter - Unsuported custom operation: %q", string(req.Meta)),
		)
	}
}

// customOpGetDBInfo is the Meta payload used to request GetDBInfo over the
// Custom message type.
const customOpGetDBInfo = "get-db-info"

type MessageHandler func(req *common.Message) (resp *common.Message)

type RegisterMessageHandler func(handler MessageHandler)
