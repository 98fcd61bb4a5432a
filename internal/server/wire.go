package server

import (
	"encoding/base64"
	"fmt"

	"github.com/jean-voila/nexium/core"
)

// transactionJSON is the wire shape of a transaction in the `/transaction`
// and `/sync_transaction` route bodies. The signature travels as a decimal
// big-integer string (see core.SignatureToDecimal) rather than raw bytes.
type transactionJSON struct {
	Emitter        string `json:"emitter"`
	Timestamp      uint32 `json:"timestamp"`
	FeeRate        uint16 `json:"fee_rate"`
	Type           byte   `json:"type"`
	Receiver       string `json:"receiver,omitempty"`
	Amount         uint32 `json:"amount,omitempty"`
	HasDescription bool   `json:"has_description,omitempty"`
	Description    string `json:"description,omitempty"`
	Data           string `json:"data,omitempty"`
	Signature      string `json:"signature"`
}

func toTransactionJSON(tx *core.Transaction) (transactionJSON, error) {
	j := transactionJSON{
		Emitter:   tx.Header.Emitter,
		Timestamp: tx.Header.Timestamp,
		FeeRate:   tx.Header.FeeRate,
		Type:      byte(tx.Header.Type),
		Signature: core.SignatureToDecimal(tx.Signature),
	}
	switch d := tx.Data.(type) {
	case core.ClassicTransactionData:
		j.Receiver = d.Receiver
		j.Amount = d.Amount
		j.HasDescription = d.HasDescription
		j.Description = d.Description
	case core.UnknownData:
		j.Data = base64.StdEncoding.EncodeToString(d.Bytes)
	default:
		return transactionJSON{}, fmt.Errorf("core: unsupported transaction data %T", tx.Data)
	}
	return j, nil
}

func fromTransactionJSON(j transactionJSON) (*core.Transaction, error) {
	signature, ok := core.SignatureFromDecimal(j.Signature)
	if !ok {
		return nil, fmt.Errorf("%w: malformed signature", core.ErrInvalidPayload)
	}
	var data core.TransactionData
	switch core.DataType(j.Type) {
	case core.DataClassicTransaction:
		data = core.ClassicTransactionData{
			Receiver:       j.Receiver,
			Amount:         j.Amount,
			HasDescription: j.HasDescription,
			Description:    j.Description,
		}
	case core.DataUnknown:
		raw, err := base64.StdEncoding.DecodeString(j.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed unknown payload", core.ErrInvalidPayload)
		}
		data = core.UnknownData{Bytes: raw}
	default:
		return nil, fmt.Errorf("%w: unknown data type %d", core.ErrInvalidPayload, j.Type)
	}
	tx := &core.Transaction{
		Header: core.Header{
			Timestamp: j.Timestamp,
			FeeRate:   j.FeeRate,
			Emitter:   j.Emitter,
			Type:      core.DataType(j.Type),
		},
		Data:      data,
		Signature: signature,
	}
	payload, err := core.EncodePayload(data)
	if err != nil {
		return nil, err
	}
	tx.Header.PayloadSize = uint16(len(payload))
	return tx, nil
}
