package apistrings

const (
	/// Auth Related Strings
	UserNotFound     = "user or account does not exist"
	Unauthorized     = "unauthorized request"
	InvalidToken     = "invalid token, expects bearer token"
	AdminOnly        = "this action requires an administrator"
	InvalidSignature = "webhook signature is missing or invalid"

	/// Core Functionality Error
	ServerError = "a server error occurred, please try again later"

	/// Wallet Related Strings
	InvalidEmail          = "invalid email address, please check submitted email address"
	UserNoWallet          = "user does not have a wallet created"
	DuplicateWallet       = "user already has a wallet"
	WalletNotFound        = "wallet does not exist or is inactive"
	DestinationNotFound   = "destination wallet does not exist or is inactive"
	SelfTransfer          = "cannot transfer to your own wallet"
	InsufficientFunds     = "insufficient funds"
	InvalidAmount         = "amount must be positive with at most two decimal places"
	InvalidWithdrawInput  = "check 'amount', 'bank_code' or 'account_number' keys, invalid request"
	InvalidTransferInput  = "check 'destination_wallet_id' or 'amount' keys, invalid request"
	InvalidAirtimeInput   = "check 'phone_number', 'network' or 'amount' keys, invalid request"
	InvalidDataInput      = "check 'phone_number', 'network' or 'plan_code' keys, invalid request"
	InvalidResolveInput   = "check 'outcome' key, expects success or failed"
	InvalidWebhookPayload = "webhook payload could not be read"
	InvalidPagination     = "limit and offset must be non-negative integers"

	/// Transaction Related Strings
	TransactionNotFound = "transaction does not exist"
	TransactionNotYours = "you don't have access to this transaction"
	ReferenceConflict   = "reference already used for a different request"
	TransactionPending  = "transaction accepted and awaiting provider confirmation"
	NotPending          = "transaction is no longer pending"
	ProviderUnavailable = "payment provider is unavailable, please try again later"
	UnknownPlan         = "unknown data plan"
	InvalidNetwork      = "unsupported network"
)
