package radius

import (
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"

	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// AcceptParams はAccess-Accept生成に必要なパラメータ
type AcceptParams struct {
	// ReplyAttributes は認可判定の応答属性（この順序でAVPに変換する）
	ReplyAttributes []model.ReplyAttribute
}

// RejectParams はAccess-Reject生成に必要なパラメータ
type RejectParams struct {
	// ReplyMessage は拒否理由（空文字なら設定しない）
	ReplyMessage string
}

// StatusParams はStatus-Server応答のパラメータ
type StatusParams struct {
	// ReplyMessage はポリシー版数などの稼働情報（空文字なら設定しない）
	ReplyMessage string
}

// BuildAccessAccept はAccess-Acceptパケットを構築する。
// 変換できなかった応答属性のエラーはパケットと併せて返す（パケットは常に有効）。
func BuildAccessAccept(request *radius.Packet, secret []byte, params *AcceptParams) (*radius.Packet, error) {
	resp := request.Response(radius.CodeAccessAccept)
	attrErr := AddReplyAttributes(resp, params.ReplyAttributes)
	finishReply(request, resp, secret)
	return resp, attrErr
}

// BuildAccessReject はAccess-Rejectパケットを構築する。
func BuildAccessReject(request *radius.Packet, secret []byte, params *RejectParams) *radius.Packet {
	resp := request.Response(radius.CodeAccessReject)
	setReplyMessage(resp, params.ReplyMessage)
	finishReply(request, resp, secret)
	return resp
}

// BuildStatusReply はStatus-Server(Code=12)への応答をAccess-Acceptで構築する（RFC 5997）。
// Status-ServerではMessage-Authenticatorが必須で、欠落・不一致はエラーを返す（応答しない）。
func BuildStatusReply(request *radius.Packet, secret []byte, params *StatusParams) (*radius.Packet, error) {
	if err := CheckMessageAuthenticator(request, secret, true); err != nil {
		return nil, err
	}
	resp := request.Response(radius.CodeAccessAccept)
	setReplyMessage(resp, params.ReplyMessage)
	finishReply(request, resp, secret)
	return resp, nil
}

// ProxyStates はリクエストのProxy-State値を受信順に返す。
func ProxyStates(request *radius.Packet) [][]byte {
	var out [][]byte
	for _, avp := range request.Attributes {
		if avp.Type == rfc2865.ProxyState_Type {
			out = append(out, avp.Attribute)
		}
	}
	return out
}

// finishReply はProxy-Stateを受信順にエコーし（RFC 2865 5.33）、最後にMessage-Authenticatorを付与する。
func finishReply(request, resp *radius.Packet, secret []byte) {
	for _, v := range ProxyStates(request) {
		resp.Add(rfc2865.ProxyState_Type, radius.Attribute(v))
	}
	SetMessageAuthenticator(resp, secret, request.Authenticator)
}

func setReplyMessage(p *radius.Packet, msg string) {
	if msg == "" {
		return
	}
	_ = rfc2865.ReplyMessage_SetString(p, msg)
}
