package rpc_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedeqiang/pulse/rpc"
)

func TestMethodCallWireFormat(t *testing.T) {
	call := rpc.NewCall(1, "eth_blockNumber", nil)

	data, err := json.Marshal(call)
	require.NoError(t, err)
	require.Equal(t, `{"jsonrpc":"2.0","id":1,"method":"eth_blockNumber","params":[]}`, string(data))
}

func TestMethodCallWithParams(t *testing.T) {
	call := rpc.NewCall(7, "eth_getBalance", []rpc.Value{
		rpc.Value(`"0x0000000000000000000000000000000000000000"`),
		rpc.Value(`"latest"`),
	})

	data, err := json.Marshal(call)
	require.NoError(t, err)
	require.Equal(t,
		`{"jsonrpc":"2.0","id":7,"method":"eth_getBalance","params":["0x0000000000000000000000000000000000000000","latest"]}`,
		string(data))
}

func TestBatchCallMarshalsAsArray(t *testing.T) {
	batch := rpc.BatchCall{
		rpc.NewCall(1, "eth_blockNumber", nil),
		rpc.NewCall(2, "eth_chainId", nil),
	}

	data, err := json.Marshal(batch)
	require.NoError(t, err)
	require.Equal(t, byte('['), data[0])

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	require.Equal(t, "eth_chainId", decoded[1]["method"])
}

func TestOutputUnmarshalSuccess(t *testing.T) {
	var out rpc.Output
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","result":"0x1b4","id":3}`), &out))

	require.True(t, out.Success())
	require.Equal(t, `"0x1b4"`, string(out.Result))
	require.Equal(t, uint64(3), out.ID)
	require.Nil(t, out.Err)
}

func TestOutputUnmarshalFailure(t *testing.T) {
	var out rpc.Output
	require.NoError(t, json.Unmarshal(
		[]byte(`{"error":{"code":-32601,"message":"Method not found"},"id":5}`), &out))

	require.False(t, out.Success())
	require.Equal(t, int64(-32601), out.Err.Code)
	require.Equal(t, "Method not found", out.Err.Message)
	require.Equal(t, uint64(5), out.ID)
}

func TestOutputRejectsEmptyObject(t *testing.T) {
	var out rpc.Output
	err := json.Unmarshal([]byte(`{"id":1}`), &out)
	require.Error(t, err)
}

func TestOutputMarshalRoundTrip(t *testing.T) {
	out := rpc.Output{Result: rpc.Value(`10`), ID: 2}
	data, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `{"result":10,"id":2}`, string(data))

	failure := rpc.Output{Err: &rpc.Error{Code: -32000, Message: "boom"}, ID: 4}
	data, err = json.Marshal(failure)
	require.NoError(t, err)
	require.JSONEq(t, `{"error":{"code":-32000,"message":"boom"},"id":4}`, string(data))
}

func TestResponseSingle(t *testing.T) {
	var resp rpc.Response
	require.NoError(t, json.Unmarshal([]byte(`{"result":"0x1","id":1}`), &resp))

	require.False(t, resp.Batched())
	require.NotNil(t, resp.Output)
	require.Equal(t, `"0x1"`, string(resp.Output.Result))
}

func TestResponseBatch(t *testing.T) {
	var resp rpc.Response
	require.NoError(t, json.Unmarshal(
		[]byte(` [{"result":"0x1","id":1},{"error":{"code":-32000,"message":"boom"},"id":2}]`), &resp))

	require.True(t, resp.Batched())
	require.Len(t, resp.Batch, 2)
	require.True(t, resp.Batch[0].Success())
	require.False(t, resp.Batch[1].Success())
}

func TestResponseEmpty(t *testing.T) {
	var resp rpc.Response
	require.Error(t, json.Unmarshal([]byte(`   `), &resp))
}

func TestNotificationParse(t *testing.T) {
	var n rpc.Notification
	require.NoError(t, json.Unmarshal(
		[]byte(`{"jsonrpc":"2.0","method":"eth_subscription","params":["0xcd0c3e8af590364c09d0fa6a1210faf5"]}`), &n))

	require.Equal(t, "eth_subscription", n.Method)
	require.Len(t, n.Params, 1)
}

func TestNotificationObjectParams(t *testing.T) {
	var n rpc.Notification
	require.NoError(t, json.Unmarshal(
		[]byte(`{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0x9cef","result":{"number":"0x1b4"}}}`), &n))

	require.Equal(t, "eth_subscription", n.Method)
	require.Len(t, n.Params, 1)
	require.JSONEq(t, `{"subscription":"0x9cef","result":{"number":"0x1b4"}}`, string(n.Params[0]))
}

func TestNotificationNullParams(t *testing.T) {
	var n rpc.Notification
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"ping","params":null}`), &n))
	require.Empty(t, n.Params)
}

func TestNotificationRejectsID(t *testing.T) {
	var n rpc.Notification
	err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping","params":[]}`), &n)
	require.Error(t, err)
}

func TestErrorString(t *testing.T) {
	err := &rpc.Error{Code: -32601, Message: "Method not found"}
	require.Equal(t, "rpc error: code=-32601 message=Method not found", err.Error())
}
