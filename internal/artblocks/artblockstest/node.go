package artblockstest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Mohsinsiddi/ogview/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlockNumber is what the fake node reports for eth_blockNumber.
const BlockNumber = 0x12d687

type nodeRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     int64             `json:"id"`
}

type callParams struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// Handler serves the chain over JSON-RPC: eth_call, eth_blockNumber and
// eth_chainId. Reverts come back as JSON-RPC error objects.
func (c *Chain) Handler(chainID int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req nodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var (
			result interface{}
			rpcErr *chain.RPCError
		)
		switch req.Method {
		case "eth_blockNumber":
			result = hexutil.Uint64(BlockNumber)
		case "eth_chainId":
			result = hexutil.Uint64(uint64(chainID))
		case "eth_call":
			out, err := c.serveCall(r, req.Params)
			if err != nil {
				if !errors.As(err, &rpcErr) {
					rpcErr = &chain.RPCError{Code: -32000, Message: err.Error()}
				}
				break
			}
			result = hexutil.Bytes(out)
		default:
			rpcErr = &chain.RPCError{Code: -32601, Message: "method not found"}
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	})
}

func (c *Chain) serveCall(r *http.Request, params []json.RawMessage) ([]byte, error) {
	if len(params) == 0 {
		return nil, errors.New("missing call object")
	}
	var p callParams
	if err := json.Unmarshal(params[0], &p); err != nil {
		return nil, err
	}
	data, err := hexutil.Decode(p.Data)
	if err != nil {
		return nil, err
	}
	return c.CallContract(r.Context(), common.HexToAddress(p.To), data)
}
