package utils

const REVISION = "v1.0.0"
