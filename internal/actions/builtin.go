package actions

type builtin struct {
	selector, description, configSchema string
	ctor                                Constructor
}

var builtins = []builtin{
	{"scan.create_id", "Create a scan id from the current time, scan type and subtype.", createScanIDConfigSchema, newCreateScanID},
	{"scan.compare", "Count pass, fail and notapplicable results of two scans and report the difference.", compareConfigSchema, newCompare},
	{"scan.fetch_result", "Read a stored scan result by scan id.", fetchResultConfigSchema, newFetchResult},
	{"scan.list_history", "List the stored scan result files.", listHistoryConfigSchema, newListHistory},
	{"scan.save_result", "Store command output as a scan result.", saveResultConfigSchema, newSaveResult},
	{"command.build", "Build a command line from bag inputs.", buildCommandConfigSchema, newBuildCommand},
	{"command.run", "Run a command, streaming its combined output line by line.", runCommandConfigSchema, newRunCommand},
	{"output.print", "Print a string or a list of strings.", printConfigSchema, newPrint},
	{"data.transform", "Evaluate a jq query over the bag.", transformConfigSchema, newTransform},
	{"data.assert", "Fail unless a CEL expression over the bag is true.", assertConfigSchema, newAssert},
}

// RegisterBuiltins registers all built-in action variants in f.
func RegisterBuiltins(f *Factory) error {
	for _, b := range builtins {
		if err := f.Register(b.selector, b.ctor, b.configSchema, b.description); err != nil {
			return err
		}
	}
	return nil
}

// NewBuiltinFactory creates a Factory with every built-in variant registered.
func NewBuiltinFactory(deps Deps) (*Factory, error) {
	f, err := NewFactory(deps)
	if err != nil {
		return nil, err
	}
	if err := RegisterBuiltins(f); err != nil {
		return nil, err
	}
	return f, nil
}
