// Package main VidGo Server API
//
//	@title						VidGo Server API
//	@version					1.0
//	@description				AI video generation backend: multi-provider generation, credits, quotas and credit-pack purchases.
//
//	@contact.name				VidGo Support
//	@contact.url				https://vidgo.dev/support
//	@contact.email				support@vidgo.dev
//
//	@host						localhost:8080
//	@BasePath					/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"
//
//	@tag.name					Generation
//	@tag.description			Generation tasks, moderation and the avatar catalog
//
//	@tag.name					Credit
//	@tag.description			Credit balances and transaction history
//
//	@tag.name					Quota
//	@tag.description			Daily generation quota
//
//	@tag.name					Order
//	@tag.description			Credit pack catalog and orders
//
//	@tag.name					Promotion
//	@tag.description			Promo codes and redemptions
//
//	@tag.name					Payment
//	@tag.description			Checkout and payment provider webhooks
//
//	@tag.name					Session
//	@tag.description			Editor session heartbeats
//
//	@tag.name					Material
//	@tag.description			Preset material library
//
//	@tag.name					Auth
//	@tag.description			Development token minting
package main
