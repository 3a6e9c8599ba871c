// Package shipping is the Aramex rate-calculator client. The service speaks
// SOAP; the envelope here mirrors the vendor's CalculateRate contract.
package shipping

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"printforge-backend/internal/apperr"
)

type Config struct {
	Endpoint      string
	UserName      string
	Password      string
	AccountNumber string
	AccountPin    string
	AccountEntity string
	OriginCity    string
	OriginCountry string

	// FallbackFee is returned without calling the remote when the cart
	// weight is zero or negative.
	FallbackFee float64
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type clientInfo struct {
	UserName           string `xml:"v1:UserName"`
	Password           string `xml:"v1:Password"`
	Version            string `xml:"v1:Version"`
	AccountNumber      string `xml:"v1:AccountNumber"`
	AccountPin         string `xml:"v1:AccountPin"`
	AccountEntity      string `xml:"v1:AccountEntity"`
	AccountCountryCode string `xml:"v1:AccountCountryCode"`
}

type address struct {
	City        string `xml:"v1:City"`
	CountryCode string `xml:"v1:CountryCode"`
}

type weight struct {
	Unit  string  `xml:"v1:Unit"`
	Value float64 `xml:"v1:Value"`
}

type dimensions struct {
	Length float64 `xml:"v1:Length"`
	Width  float64 `xml:"v1:Width"`
	Height float64 `xml:"v1:Height"`
	Unit   string  `xml:"v1:Unit"`
}

type shipmentDetails struct {
	Dimensions       dimensions `xml:"v1:Dimensions"`
	ActualWeight     weight     `xml:"v1:ActualWeight"`
	ChargeableWeight weight     `xml:"v1:ChargeableWeight"`
	NumberOfPieces   int        `xml:"v1:NumberOfPieces"`
	ProductGroup     string     `xml:"v1:ProductGroup"`
	ProductType      string     `xml:"v1:ProductType"`
	PaymentType      string     `xml:"v1:PaymentType"`
}

type rateRequest struct {
	XMLName            xml.Name        `xml:"v1:RateCalculatorRequest"`
	ClientInfo         clientInfo      `xml:"v1:ClientInfo"`
	TransactionRef     string          `xml:"v1:Transaction>v1:Reference1"`
	OriginAddress      address         `xml:"v1:OriginAddress"`
	DestinationAddress address         `xml:"v1:DestinationAddress"`
	ShipmentDetails    shipmentDetails `xml:"v1:ShipmentDetails"`
}

type soapEnvelope struct {
	XMLName xml.Name    `xml:"soap:Envelope"`
	SoapNS  string      `xml:"xmlns:soap,attr"`
	V1NS    string      `xml:"xmlns:v1,attr"`
	Body    interface{} `xml:"soap:Body"`
}

type rateResponseEnvelope struct {
	Body struct {
		Response struct {
			HasErrors     bool `xml:"HasErrors"`
			Notifications struct {
				Notification []struct {
					Code    string `xml:"Code"`
					Message string `xml:"Message"`
				} `xml:"Notification"`
			} `xml:"Notifications"`
			TotalAmount struct {
				CurrencyCode string  `xml:"CurrencyCode"`
				Value        float64 `xml:"Value"`
			} `xml:"TotalAmount"`
		} `xml:"RateCalculatorResponse"`
	} `xml:"Body"`
}

// CalculateRate returns the shipping charge for the destination and total
// cart weight in kilograms. Non-positive weight short-circuits to the
// configured fallback fee.
func (c *Client) CalculateRate(ctx context.Context, destCity, destCountry string, weightKg float64) (float64, error) {
	if weightKg <= 0 {
		log.Printf("[aramex] non-positive weight %.3fkg, using fallback fee", weightKg)
		return c.cfg.FallbackFee, nil
	}
	if c.cfg.Endpoint == "" {
		return 0, apperr.New(apperr.External, "shipping rate service is not configured")
	}

	envelope := soapEnvelope{
		SoapNS: "http://schemas.xmlsoap.org/soap/envelope/",
		V1NS:   "http://ws.aramex.net/ShippingAPI/v1/",
		Body: rateRequest{
			ClientInfo: clientInfo{
				UserName:           c.cfg.UserName,
				Password:           c.cfg.Password,
				Version:            "v1.0",
				AccountNumber:      c.cfg.AccountNumber,
				AccountPin:         c.cfg.AccountPin,
				AccountEntity:      c.cfg.AccountEntity,
				AccountCountryCode: c.cfg.OriginCountry,
			},
			TransactionRef: "rate-calc-001",
			OriginAddress: address{
				City:        c.cfg.OriginCity,
				CountryCode: c.cfg.OriginCountry,
			},
			DestinationAddress: address{
				City:        destCity,
				CountryCode: destCountry,
			},
			ShipmentDetails: shipmentDetails{
				Dimensions:       dimensions{Length: 20, Width: 20, Height: 10, Unit: "cm"},
				ActualWeight:     weight{Unit: "kg", Value: weightKg},
				ChargeableWeight: weight{Unit: "kg", Value: weightKg},
				NumberOfPieces:   1,
				ProductGroup:     "EXP",
				ProductType:      "PDX",
				PaymentType:      "P",
			},
		},
	}

	payload, err := xml.Marshal(envelope)
	if err != nil {
		return 0, apperr.Wrap(apperr.External, "failed to encode rate request", err)
	}
	payload = append([]byte(xml.Header), payload...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, apperr.Wrap(apperr.External, "failed to build rate request", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://ws.aramex.net/ShippingAPI/v1/Service_1_0/CalculateRate")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, apperr.Wrap(apperr.External, "shipping rate request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, apperr.Wrap(apperr.External, "failed to read rate response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, apperr.New(apperr.External, fmt.Sprintf("shipping rate service returned status %d", resp.StatusCode))
	}

	var parsed rateResponseEnvelope
	if err := xml.Unmarshal(data, &parsed); err != nil {
		return 0, apperr.Wrap(apperr.External, "failed to decode rate response", err)
	}

	response := parsed.Body.Response
	if response.HasErrors {
		for _, n := range response.Notifications.Notification {
			log.Printf("[aramex] %s: %s", n.Code, n.Message)
		}
		return 0, apperr.New(apperr.External, "shipping rate service returned an error")
	}

	return response.TotalAmount.Value, nil
}
