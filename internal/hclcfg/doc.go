// Package hclcfg is the HCL implementation of the config.Loader interface.
// It discovers .hcl files, decodes their network, circuit, workflow, and
// solver blocks, and translates them into the format-agnostic model.
package hclcfg
